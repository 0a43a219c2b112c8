package authclient

import (
	"strings"

	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/tidwall/gjson"
)

// classifier separates the auth-expired signal from bad credentials. Both
// share a status; the body discriminator decides.
type classifier struct {
	status     int
	msgField   string
	badMessage string
	codeField  string
	badCode    string
}

func newClassifier(cfg AuthConfig) classifier {
	return classifier{
		status:     cfg.ExpiredStatus,
		msgField:   cfg.MessageField,
		badMessage: cfg.BadCredentialsMessage,
		codeField:  cfg.CodeField,
		badCode:    cfg.BadCredentialsCode,
	}
}

func (c classifier) classify(resp *Response) flows.Signal {
	if resp == nil || resp.StatusCode != c.status {
		return flows.SignalNone
	}
	if c.badCredentials(resp.Body) {
		return flows.SignalBadCredentials
	}
	return flows.SignalAuthExpired
}

func (c classifier) badCredentials(body []byte) bool {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return false
	}
	if c.codeField != "" {
		if code := gjson.GetBytes(body, c.codeField); code.Exists() && code.String() == c.badCode {
			return true
		}
	}
	if c.msgField != "" && c.badMessage != "" {
		msg := gjson.GetBytes(body, c.msgField)
		if msg.Exists() && strings.EqualFold(strings.TrimSpace(msg.String()), c.badMessage) {
			return true
		}
	}
	return false
}

// IsAuthExpired reports whether resp carries the auth-expired signal under
// the default configuration.
func IsAuthExpired(resp *Response) bool {
	return newClassifier(DefaultConfig().Auth).classify(resp) == flows.SignalAuthExpired
}

// IsBadCredentials reports whether resp is a bad-credentials rejection under
// the default configuration.
func IsBadCredentials(resp *Response) bool {
	return newClassifier(DefaultConfig().Auth).classify(resp) == flows.SignalBadCredentials
}
