// Package domain contains the user-management API types.
package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Tier string

const (
	TierFree     Tier = "free"
	TierPersonal Tier = "personal"
	TierTeam     Tier = "team"
)

// NormalizeTier defaults unknown or missing tiers to free.
func NormalizeTier(raw string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierPersonal:
		return TierPersonal
	case TierTeam:
		return TierTeam
	default:
		return TierFree
	}
}

// UserID is the API's record identifier. The API has returned it both as a
// JSON string and as a number; it is always held as a string.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) String() string { return string(id) }

// UserRecord is an application-level account owned by the API.
type UserRecord struct {
	ID               UserID     `json:"id"`
	Email            string     `json:"email"`
	DisplayName      string     `json:"displayName,omitempty"`
	Role             Role       `json:"role"`
	IsActive         bool       `json:"isActive"`
	SubscriptionTier Tier       `json:"subscriptionTier,omitempty"`
	FirebaseUID      string     `json:"firebaseUid,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
}

// Normalize fills defaults the API may omit.
func (u *UserRecord) Normalize() {
	if u.Role == "" {
		u.Role = RoleUser
	}
	u.SubscriptionTier = NormalizeTier(string(u.SubscriptionTier))
}

// Tier returns the subscription tier, defaulting to free.
func (u UserRecord) Tier() Tier {
	return NormalizeTier(string(u.SubscriptionTier))
}

// NewUser is the create input. Password is consumed by the identity
// provider only and is never sent to the API.
type NewUser struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName,omitempty" validate:"max=200"`
	Role        Role   `json:"role" validate:"required,oneof=user admin"`
	IsActive    bool   `json:"isActive"`
	FirebaseUID string `json:"firebaseUid"`
	Password    string `json:"-"`
}

// UserUpdate is a partial update. Nil fields are left unchanged and an
// empty Password means no change.
type UserUpdate struct {
	DisplayName *string `validate:"omitempty,max=200"`
	Role        *Role   `validate:"omitempty,oneof=user admin"`
	IsActive    *bool
	Password    *string
}

// Body returns the wire body for the update.
func (u UserUpdate) Body() map[string]any {
	body := map[string]any{}
	if u.DisplayName != nil {
		body["displayName"] = *u.DisplayName
	}
	if u.Role != nil {
		body["role"] = string(*u.Role)
	}
	if u.IsActive != nil {
		body["isActive"] = *u.IsActive
	}
	if u.Password != nil && *u.Password != "" {
		body["password"] = *u.Password
	}
	return body
}

// SubscriptionInfo is the read-only subscription lookup result.
type SubscriptionInfo struct {
	Subscription    json.RawMessage `json:"subscription"`
	HasSubscription bool            `json:"hasSubscription"`
	Tier            Tier            `json:"subscriptionTier"`
}

// DefaultSubscription is reported when the API has nothing on file.
func DefaultSubscription() SubscriptionInfo {
	return SubscriptionInfo{Subscription: nil, HasSubscription: false, Tier: TierFree}
}

// ParseUserID accepts a path parameter and rejects blanks and values that
// would escape the resource path.
func ParseUserID(raw string) (UserID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, "/?#") {
		return "", false
	}
	return UserID(raw), true
}
