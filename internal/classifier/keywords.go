package classifier

// DefaultTrackerKeywords are cookie-name fragments of analytics and ad-tech
// vendors.  A match makes a cookie non-essential regardless of its
// attributes.
var DefaultTrackerKeywords = []string{
	"_ga", "_gid", "_fbp", "_gcl_au", "_ym_uid", "_gaexp", "ga", "track",
	"trk", "ads", "adid", "adtrack", "pixel", "tag",
}

// DefaultEssentialKeywords are cookie-name fragments that indicate session,
// authentication, CSRF or locale state.
var DefaultEssentialKeywords = []string{
	"csrf", "xsrf", "session", "auth", "user_id", "lang", "theme", "secure",
	"prefs", "sessid", "ssid", "user", "login", "zipcode", "country",
	"currency", "sid", "uid", "remember", "verify",
}
