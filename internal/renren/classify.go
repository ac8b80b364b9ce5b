package renren

import (
	"go.uber.org/zap"

	"snsapi/internal/rawjson"
)

// Classify separates platform errors from payloads. Arrays are always
// success; any other value carrying error_code becomes an *APIError.
// Elements of an array are not inspected.
func Classify(log *zap.Logger, v rawjson.Value) (rawjson.Value, error) {
	if v.IsArray() || !v.Has("error_code") {
		return v, nil
	}
	apiErr := &APIError{}
	if c, err := v.Field("error_code"); err == nil {
		apiErr.Code, _ = c.Int()
	}
	if m, err := v.Field("error_msg"); err == nil {
		apiErr.Message, _ = m.Text()
	}
	if log != nil {
		log.Warn(apiErr.Message, zap.Int64("error_code", apiErr.Code))
	}
	return v, apiErr
}
