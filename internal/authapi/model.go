package authapi

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/tourista/session-coordinator/pkg/session"
)

const (
	loginPath    = "/authenticat/Login"
	registerPath = "/authenticat/Register"
	refreshPath  = "/authenticat/GetRefreshToken"
)

type refreshRequest struct {
	Token string `json:"token"`
	// the remote API expects this exact spelling
	RefreshToken string `json:"refrehToken"`
}

// authResponse is the body the remote API answers login, register and
// refresh with. The expiries arrive either as timestamps or as seconds from
// now, the user ID either as a number or a string.
type authResponse struct {
	Token              string    `mapstructure:"token"`
	RefreshToken       string    `mapstructure:"refreshToken"`
	ExpiresIn          time.Time `mapstructure:"expiresIn"`
	RefreshTokenExpiry time.Time `mapstructure:"refreshTokenExpiretion"`
	Name               string    `mapstructure:"name"`
	Email              string    `mapstructure:"email"`
	ID                 string    `mapstructure:"id"`
}

// errorResponse is the body of a rejected call, when there is one.
type errorResponse struct {
	Message string `json:"message"`
	Title   string `json:"title"`
}

func (e errorResponse) description() string {
	if e.Message != "" {
		return e.Message
	}

	return e.Title
}

func decodeAuthResponse(raw map[string]any, now time.Time) (authResponse, error) {
	var resp authResponse

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       expiryHook(now),
		WeaklyTypedInput: true,
		Result:           &resp,
	})
	if err != nil {
		return authResponse{}, fmt.Errorf("creating decoder: %w", err)
	}

	if err := dec.Decode(raw); err != nil {
		return authResponse{}, fmt.Errorf("decoding auth response: %w", err)
	}

	return resp, nil
}

// expiryHook turns RFC 3339 timestamps and relative seconds into absolute
// expiry times.
func expiryHook(now time.Time) mapstructure.DecodeHookFuncType {
	timeType := reflect.TypeFor[time.Time]()

	return func(_ reflect.Type, to reflect.Type, data any) (any, error) {
		if to != timeType {
			return data, nil
		}

		switch v := data.(type) {
		case nil:
			return time.Time{}, nil
		case json.Number:
			return fromSeconds(now, string(v))
		case float64:
			return now.Add(time.Duration(v * float64(time.Second))), nil
		case int64:
			return now.Add(time.Duration(v) * time.Second), nil
		case int:
			return now.Add(time.Duration(v) * time.Second), nil
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return time.Time{}, nil
			}
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return t, nil
			}
			// timestamps without zone are what .NET emits for UTC dates
			if t, err := time.Parse("2006-01-02T15:04:05.999999999", v); err == nil {
				return t.UTC(), nil
			}

			return fromSeconds(now, v)
		}

		return data, nil
	}
}

func fromSeconds(now time.Time, s string) (time.Time, error) {
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("expiry %q is neither a timestamp nor seconds", s)
	}

	return now.Add(time.Duration(secs * float64(time.Second))), nil
}

func (r authResponse) toSession() session.Session {
	return session.Session{
		AccessToken:        r.Token,
		RefreshToken:       r.RefreshToken,
		AccessTokenExpiry:  r.ExpiresIn,
		RefreshTokenExpiry: r.RefreshTokenExpiry,
		SubjectID:          r.ID,
		DisplayName:        r.Name,
		Email:              r.Email,
	}
}
