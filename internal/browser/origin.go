package browser

import (
	"context"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"cookiewarden/internal/classifier"
)

// Origin resolves the host of the foreground page.
type Origin struct {
	browser *rod.Browser
}

// type check
var _ classifier.OriginResolver = (*Origin)(nil)

func NewOrigin(b *rod.Browser) *Origin {
	return &Origin{browser: b}
}

// ActiveOrigin implements the classifier.OriginResolver interface for
// *Origin.
func (o *Origin) ActiveOrigin(ctx context.Context) (string, bool) {
	res, err := proto.TargetGetTargets{}.Call(o.browser.Context(ctx))
	if err != nil {
		return "", false
	}
	return originFromTargets(res.TargetInfos)
}

// originFromTargets picks the first web page target.  Chromium lists the
// most recently focused page first.
func originFromTargets(targets []*proto.TargetTargetInfo) (string, bool) {
	for _, t := range targets {
		if t.Type != proto.TargetTargetInfoTypePage {
			continue
		}
		u, err := url.Parse(t.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
			continue
		}
		return u.Hostname(), true
	}
	return "", false
}
