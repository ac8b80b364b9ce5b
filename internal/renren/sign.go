package renren

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// SigKey is the parameter carrying the request signature.
const SigKey = "sig"

// Params is the field set of one API call. It is both the signed material
// and the POST body.
type Params map[string]string

// Keys returns the parameter names in ascending byte order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sign computes md5(k1=v1k2=v2...secret) over every key except sig and
// returns the lowercase hex digest.
func Sign(p Params, secret string) string {
	var b strings.Builder
	for _, k := range p.Keys() {
		if k == SigKey {
			continue
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k])
	}
	b.WriteString(secret)
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Signed replaces any previous signature with a fresh one.
func (p Params) Signed(secret string) Params {
	delete(p, SigKey)
	p[SigKey] = Sign(p, secret)
	return p
}

// Encode renders p as an application/x-www-form-urlencoded body.
func (p Params) Encode() string {
	form := url.Values{}
	for k, v := range p {
		form.Set(k, v)
	}
	return form.Encode()
}
