package crud

// users.go implements authentication and user-related CRUD.
import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for an access token. Credentials are sent form-encoded.
func Login(ctx context.Context, client *http.Client, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var res loginResponse
	err := do(ctx, client, http.MethodPost, "/auth/login",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &res)
	if err != nil {
		return "", err
	}
	if res.AccessToken == "" {
		return "", errors.New("login response carried no access token")
	}
	return res.AccessToken, nil
}

// Register asks the server to create a new account from userData. The response body is ignored.
func Register(ctx context.Context, client *http.Client, userData any) error {
	return postJSON(ctx, client, http.MethodPost, "/auth/register", userData, nil)
}

// Me returns the record of the user the context's token belongs to.
func Me(ctx context.Context, client *http.Client) (User, error) {
	var user User
	if err := do(ctx, client, http.MethodGet, "/users/me", "", nil, &user); err != nil {
		return nil, err
	}
	return user, nil
}

// ProfileUpdate holds the user-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Nickname *string `json:"nickname,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// UpdateMe applies update to the current user and returns the updated record.
func UpdateMe(ctx context.Context, client *http.Client, update ProfileUpdate) (User, error) {
	var user User
	if err := postJSON(ctx, client, http.MethodPut, "/users/me", update, &user); err != nil {
		return nil, err
	}
	return user, nil
}
