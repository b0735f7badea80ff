/*
Copyright © 2022 the metadata-inspector authors.
This file is part of metadata-inspector.

metadata-inspector is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

metadata-inspector is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with metadata-inspector.  If not, see <http://www.gnu.org/licenses/>.
*/

package archive

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"time"
)

// DefaultAuthURL is the archive's authentication endpoint.
const DefaultAuthURL = "https://archive.dkrz.de/api/v2/authentication"

// PasswordEnv names the environment variable carrying a base64-encoded
// one-time password for non-interactive logins.
const PasswordEnv = "LC_TELEPHONE"

// Expiry timestamps are written the way the slk tools write them, with
// and without a zone abbreviation.
var sessionDateLayouts = []string{
	"Mon Jan 02 15:04:05 MST 2006",
	"Mon Jan 02 15:04:05 2006",
}

// Session is the persisted archive credential.
type Session struct {
	User       string `json:"user"`
	SessionKey string `json:"sessionKey"`
	ExpireDate string `json:"expireDate"`
}

// Authenticator mints and stores archive session keys.
type Authenticator struct {
	// URL is the authentication endpoint; empty means DefaultAuthURL.
	URL string
	// SessionPath is the session file location; empty means
	// ~/.slk/config.json.
	SessionPath string
	// LoginCommand is the interactive fallback; empty means "slk".
	LoginCommand string
	// SearchPath is handed to the interactive login command.
	SearchPath []string
}

func (a *Authenticator) sessionPath() string {
	if a.SessionPath != "" {
		return a.SessionPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".slk", "config.json")
}

// ExpirationDate returns when the stored session key expires. A missing
// or unreadable session file counts as expired now.
func (a *Authenticator) ExpirationDate() time.Time {
	now := time.Now()
	raw, err := ioutil.ReadFile(a.sessionPath())
	if err != nil {
		return now
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return now
	}
	for _, layout := range sessionDateLayouts {
		if t, err := time.Parse(layout, s.ExpireDate); err == nil {
			return t
		}
	}
	return now
}

// Login makes sure a usable session key exists. When the password
// environment variable is set the key is minted from the
// authentication endpoint; otherwise, if the stored session has expired,
// the interactive login command is run. Valid stored sessions are left
// alone.
func (a *Authenticator) Login(ctx context.Context) error {
	passwd := os.Getenv(PasswordEnv)
	if passwd != "" {
		decoded, err := base64.StdEncoding.DecodeString(passwd)
		if err != nil {
			return fmt.Errorf("archive: decoding password: %v", err)
		}
		return a.loginViaRequest(ctx, string(decoded))
	}
	if time.Until(a.ExpirationDate()) > 0 {
		return nil
	}
	fmt.Println("Your session has expired, login to slk")
	loginCmd := a.LoginCommand
	if loginCmd == "" {
		loginCmd = "slk"
	}
	slk := &SLK{Command: loginCmd, SearchPath: a.SearchPath}
	cmd := exec.CommandContext(ctx, loginCmd, "login")
	cmd.Env = slk.environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("archive: %s login: %v", loginCmd, err)
	}
	return nil
}

type authRequest struct {
	Data struct {
		Attributes struct {
			Domain   string `json:"domain"`
			Name     string `json:"name"`
			Password string `json:"password"`
		} `json:"attributes"`
		Type string `json:"type"`
	} `json:"data"`
}

type authResponse struct {
	Data struct {
		Attributes struct {
			SessionKey string `json:"session_key"`
		} `json:"attributes"`
	} `json:"data"`
}

// loginViaRequest mints a session key from the authentication endpoint
// and persists it with a 20-day expiry.
func (a *Authenticator) loginViaRequest(ctx context.Context, passwd string) error {
	userName := currentUser()
	var body authRequest
	body.Data.Attributes.Domain = "ldap"
	body.Data.Attributes.Name = userName
	body.Data.Attributes.Password = passwd
	body.Data.Type = "authentication"
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("archive: encoding login request: %v", err)
	}

	authURL := a.URL
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	req, err := http.NewRequest("POST", authURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("archive: %v", err)
	}
	req.Header.Set("Content-type", "application/json")
	// The archive endpoint serves a certificate the platform trust
	// store does not always know.
	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("archive: authenticating: %v", err)
	}
	defer resp.Body.Close()
	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("archive: decoding authentication response: %v", err)
	}
	key := out.Data.Attributes.SessionKey
	if key == "" {
		return nil
	}
	expire := time.Now().Add(20 * 24 * time.Hour).Format(sessionDateLayouts[0])
	s := Session{User: userName, SessionKey: key, ExpireDate: expire}
	return a.writeSession(s)
}

func (a *Authenticator) writeSession(s Session) error {
	path := a.sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("archive: creating session directory: %v", err)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("archive: encoding session: %v", err)
	}
	if err := ioutil.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("archive: writing session: %v", err)
	}
	return nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
