package renren

import "golang.org/x/time/rate"

const (
	defaultRPS   = 2
	defaultBurst = 10
)

// NewLimiter returns a limiter for rps requests per second. Non-positive
// values fall back to the defaults. The CLI feeds it from config.APIConfig,
// where SNSAPI_API_RPS and SNSAPI_API_BURST are resolved.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
