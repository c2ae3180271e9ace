package payment

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"regexp"
	"time"
)

// Reference is the checkout context threaded through the gateway and back.
// It rides on the payment as the merchant reference so the webhook can
// replay the order pipeline for the right user.
type Reference struct {
	UserID       string `json:"userId"`
	LocationID   string `json:"locationId"`
	AddressID    string `json:"addressId,omitempty"`
	DiscountCode string `json:"discountCode,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

var errBadReference = errors.New("unparseable merchant reference")

// legacyRefPattern matches the old "user-<uuid>-<millis>" reference format
// still seen on payments started before the encoded format shipped.
var legacyRefPattern = regexp.MustCompile(`^user-([0-9a-fA-F-]{36})-\d+$`)

// EncodeReference packs a Reference into a URL-safe opaque string.
func EncodeReference(ref Reference) (string, error) {
	if ref.Timestamp == 0 {
		ref.Timestamp = time.Now().UnixMilli()
	}
	raw, err := json.Marshal(ref)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeReference unpacks a merchant reference. References from the legacy
// format decode to a Reference carrying only the user id.
func DecodeReference(encoded string) (Reference, error) {
	if m := legacyRefPattern.FindStringSubmatch(encoded); m != nil {
		return Reference{UserID: m[1]}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		if raw, err = base64.StdEncoding.DecodeString(encoded); err != nil {
			return Reference{}, errBadReference
		}
	}
	var ref Reference
	if err := json.Unmarshal(raw, &ref); err != nil {
		return Reference{}, errBadReference
	}
	if ref.UserID == "" {
		return Reference{}, errBadReference
	}
	return ref, nil
}
