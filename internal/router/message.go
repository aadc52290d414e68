package router

import (
	"cookiewarden/internal/domain"
	"cookiewarden/internal/store"
)

// Message types.
const (
	TypeGetState         = "GET_STATE"
	TypeUpdateState      = "UPDATE_STATE"
	TypeBlockSite        = "BLOCK_SITE"
	TypeWhitelistSite    = "WHITELIST_SITE"
	TypeLogBannerRemoved = "LOG_BANNER_REMOVED"

	TypeUnblockSite         = "UNBLOCK_SITE"
	TypeRemoveWhitelistSite = "REMOVE_WHITELIST_SITE"
	TypeImportList          = "IMPORT_LIST"
	TypeGetLogs             = "GET_LOGS"
	TypeClearLogs           = "CLEAR_LOGS"
	TypeSyncStatus          = "SYNC_STATUS"
)

// List names accepted by IMPORT_LIST.
const (
	ListWhitelist = "whitelist"
	ListBlacklist = "blacklist"
)

// Request is a typed message from a UI collaborator.  Only the fields used
// by Type are read.
type Request struct {
	Type    string             `json:"type"`
	State   *domain.StatePatch `json:"state,omitempty"`
	Domain  string             `json:"domain,omitempty"`
	Count   int                `json:"count,omitempty"`
	Domains []string           `json:"domains,omitempty"`
	List    string             `json:"list,omitempty"`
}

// Response is the reply to a Request.
type Response struct {
	Success  bool                   `json:"success"`
	State    *domain.ExtensionState `json:"state,omitempty"`
	Stats    *domain.ExtensionState `json:"stats,omitempty"`
	Logs     []domain.ActivityEntry `json:"logs,omitempty"`
	Imported *int                   `json:"imported,omitempty"`
	Sync     *store.SyncStatus      `json:"sync,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func failure(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

func withState(s domain.ExtensionState) Response {
	return Response{Success: true, State: &s}
}

func withStats(s domain.ExtensionState) Response {
	return Response{Success: true, Stats: &s}
}
