// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package googleauth builds authorized Google API HTTP clients from
// OAuth 2.0 installed-app client secrets, caching the user's token on
// disk between runs.
package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	authDirMode   = 0700
	tokenFileMode = 0600
)

// Client returns an HTTP client authorized with the token cached at
// tokenFile.  Expired access tokens are refreshed transparently, and
// each refreshed token is written back to tokenFile so the next run
// starts with a live one.
func Client(ctx context.Context, credentialsFile, tokenFile string, scopes ...string) (*http.Client, error) {
	cfg, err := configFromFile(credentialsFile, scopes)
	if err != nil {
		return nil, err
	}
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, errors.Wrapf(err,
			"no usable token at %q; run \"mailsheet auth\" first", tokenFile)
	}
	src := &savingTokenSource{
		src:  cfg.TokenSource(ctx, tok),
		path: tokenFile,
		last: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, src), nil
}

// Authorize runs the interactive consent flow, reading the
// verification code from in, and caches the resulting token at
// tokenFile.
func Authorize(ctx context.Context, in io.Reader, out io.Writer, credentialsFile, tokenFile string, scopes ...string) error {
	cfg, err := configFromFile(credentialsFile, scopes)
	if err != nil {
		return err
	}

	url := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open the following link in your browser, authorize the "+
		"application, then paste the code shown:\n\n%v\n\nCode: ", url)

	var code string
	if _, err := fmt.Fscan(in, &code); err != nil {
		return errors.Wrap(err, "reading authorization code")
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return errors.Wrap(err, "exchanging authorization code")
	}
	return saveToken(tokenFile, tok)
}

func configFromFile(path string, scopes []string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err,
			"reading OAuth client secrets at %q; download them from the "+
				"Google Cloud console", path)
	}
	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing OAuth client secrets at %q", path)
	}
	return cfg, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, errors.Wrapf(err, "parsing token file %q", path)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), authDirMode); err != nil {
		return errors.Wrapf(err, "creating token directory for %q", path)
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return errors.Wrap(err, "encoding token")
	}
	if err := os.WriteFile(path, b, tokenFileMode); err != nil {
		return errors.Wrapf(err, "writing token file %q", path)
	}
	return nil
}

// savingTokenSource persists tokens whenever the wrapped source
// produces a new one.
type savingTokenSource struct {
	src  oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

// Token satisfies oauth2.TokenSource.
func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := saveToken(s.path, tok); err != nil {
			return nil, err
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
