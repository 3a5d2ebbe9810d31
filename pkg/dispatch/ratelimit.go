package dispatch

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-bot-shared/pkg/pacer"
)

// IsRetryable reports whether err is Discord pushing back: a rate limit or a
// server side failure. It is the bulk runner's default pacer classifier.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		code := rest.Response.StatusCode
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return pacer.DefaultClassifier(err)
}
