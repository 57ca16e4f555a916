package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const maxBodyBytes = 1 << 20

// userID accepts a JSON number or a string holding an integer.
type userID int64

func (u *userID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("user_id must be an integer")
	}
	*u = userID(n)
	return nil
}

type signupRequest struct {
	AppName  string  `json:"app_name"`
	UserID   *userID `json:"user_id"`
	UserName string  `json:"user_name"`
	Password string  `json:"password"`
	Role     string  `json:"role"`
}

type loginRequest struct {
	AppName  string `json:"app_name"`
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

type renewRequest struct {
	AppName     string `json:"app_name"`
	UserName    string `json:"user_name"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// decodeBody decodes a single JSON object from the request body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			return errors.New("invalid JSON payload")
		case errors.As(err, &typeErr):
			return fmt.Errorf("field %s has the wrong type", typeErr.Field)
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
