// Package sheets persists the translation dictionary in a Google Sheets
// spreadsheet. The first sheet ("Dictionary") is the record table, the
// second ("Ignore") holds one ignore-path rule per row.
//
// Authentication is a service-account JWT bearer grant done directly over
// net/http; no Google SDK involved. The access token is cached until
// shortly before expiry.
package sheets

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dst-tools/modlate/dictionary"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com"
	scope          = "https://www.googleapis.com/auth/spreadsheets"

	dictionaryRange = "Dictionary!A:E"
	ignoreRange     = "Ignore!A:A"

	// checkmark marks a set role flag in the sheet, matching how the
	// dictionary is maintained by hand.
	checkmark = "✔"
)

// header is the Dictionary sheet's first row.
var header = []string{"Original Text", "Translated Text", "Is Comment", "Is Quotes", "Found In"}

// ---------------------------------------------------------------------------
// Service account credentials
// ---------------------------------------------------------------------------

// Credentials is the subset of a Google service-account key file the
// client needs.
type Credentials struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// LoadCredentials reads a service-account key JSON file.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing credentials %s: %w", path, err)
	}
	if c.ClientEmail == "" || c.PrivateKey == "" {
		return nil, fmt.Errorf("credentials %s: missing client_email or private_key", path)
	}
	if c.TokenURI == "" {
		c.TokenURI = "https://oauth2.googleapis.com/token"
	}
	return &c, nil
}

func (c *Credentials) rsaKey() (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(c.PrivateKey))
	if block == nil {
		return nil, fmt.Errorf("private_key is not PEM encoded")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private_key is not an RSA key")
		}
		return rsaKey, nil
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Store implements dictionary.Store against one spreadsheet.
type Store struct {
	// BaseURL of the Sheets API, overridable in tests.
	BaseURL string
	// HTTPClient used for all calls.
	HTTPClient *http.Client

	creds         *Credentials
	spreadsheetID string

	token    string
	tokenExp time.Time
}

// NewStore builds a Store for the given spreadsheet using the
// service-account key at credsPath.
func NewStore(credsPath, spreadsheetID string) (*Store, error) {
	creds, err := LoadCredentials(credsPath)
	if err != nil {
		return nil, err
	}
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	return &Store{
		BaseURL:       defaultBaseURL,
		HTTPClient:    &http.Client{Timeout: 60 * time.Second},
		creds:         creds,
		spreadsheetID: spreadsheetID,
	}, nil
}

// Load reads the whole dictionary and ignore list.
func (s *Store) Load(ctx context.Context) ([]*dictionary.Record, []string, error) {
	rows, err := s.getValues(ctx, dictionaryRange)
	if err != nil {
		return nil, nil, fmt.Errorf("loading dictionary: %w", err)
	}

	var records []*dictionary.Record
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == header[0] {
			continue // header row
		}
		rec := recordFromRow(row)
		if rec != nil {
			records = append(records, rec)
		}
	}

	ignoreRows, err := s.getValues(ctx, ignoreRange)
	if err != nil {
		return nil, nil, fmt.Errorf("loading ignore list: %w", err)
	}
	var ignore []string
	for _, row := range ignoreRows {
		if len(row) == 0 {
			continue
		}
		if rule := strings.TrimSpace(row[0]); rule != "" {
			ignore = append(ignore, rule)
		}
	}

	return records, ignore, nil
}

// Save clears the Dictionary sheet and rewrites it from the snapshot.
func (s *Store) Save(ctx context.Context, records []*dictionary.Record) error {
	if err := s.clearValues(ctx, dictionaryRange); err != nil {
		return fmt.Errorf("clearing dictionary: %w", err)
	}

	values := make([][]string, 0, len(records)+1)
	values = append(values, header)
	for _, rec := range records {
		values = append(values, rowFromRecord(rec))
	}

	if err := s.updateValues(ctx, dictionaryRange, values); err != nil {
		return fmt.Errorf("saving dictionary: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Row mapping
// ---------------------------------------------------------------------------

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func recordFromRow(row []string) *dictionary.Record {
	original := cell(row, 0)
	if original == "" {
		return nil
	}

	var roles dictionary.Role
	if cell(row, 2) != "" {
		roles |= dictionary.RoleComment
	}
	if cell(row, 3) != "" {
		roles |= dictionary.RoleQuoted
	}

	var foundIn []string
	for _, p := range strings.Split(cell(row, 4), "\n") {
		if p = strings.TrimSpace(p); p != "" {
			foundIn = append(foundIn, p)
		}
	}

	return &dictionary.Record{
		Original:   original,
		Translated: cell(row, 1),
		Roles:      roles,
		FoundIn:    foundIn,
	}
}

func rowFromRecord(rec *dictionary.Record) []string {
	isComment, isQuotes := "", ""
	if rec.Roles&dictionary.RoleComment != 0 {
		isComment = checkmark
	}
	if rec.Roles&dictionary.RoleQuoted != 0 {
		isQuotes = checkmark
	}
	return []string{
		rec.Original,
		rec.Translated,
		isComment,
		isQuotes,
		strings.Join(rec.FoundIn, "\n"),
	}
}

// ---------------------------------------------------------------------------
// Values API
// ---------------------------------------------------------------------------

type valueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values"`
}

func (s *Store) valuesURL(rng, suffix string) string {
	return fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s%s",
		s.BaseURL, url.PathEscape(s.spreadsheetID), url.PathEscape(rng), suffix)
}

func (s *Store) getValues(ctx context.Context, rng string) ([][]string, error) {
	var vr valueRange
	if err := s.call(ctx, http.MethodGet, s.valuesURL(rng, ""), nil, &vr); err != nil {
		return nil, err
	}
	return vr.Values, nil
}

func (s *Store) clearValues(ctx context.Context, rng string) error {
	return s.call(ctx, http.MethodPost, s.valuesURL(rng, ":clear"), []byte("{}"), nil)
}

func (s *Store) updateValues(ctx context.Context, rng string, values [][]string) error {
	body, err := json.Marshal(valueRange{
		MajorDimension: "ROWS",
		Values:         values,
	})
	if err != nil {
		return err
	}
	return s.call(ctx, http.MethodPut, s.valuesURL(rng, "?valueInputOption=RAW"), body, nil)
}

func (s *Store) call(ctx context.Context, method, callURL string, body []byte, out any) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, callURL, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sheets API %s: HTTP %d: %s", method, resp.StatusCode, truncate(string(respBody), 200))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parsing sheets response: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Service account token flow
// ---------------------------------------------------------------------------

func (s *Store) accessToken(ctx context.Context) (string, error) {
	// 30s safety window, same idea as provider token refresh elsewhere.
	if s.token != "" && time.Until(s.tokenExp) > 30*time.Second {
		return s.token, nil
	}

	assertion, err := s.signedJWT(time.Now())
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.creds.TokenURI,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	s.token = tok.AccessToken
	s.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return s.token, nil
}

// signedJWT builds the RS256 service-account assertion.
func (s *Store) signedJWT(now time.Time) (string, error) {
	key, err := s.creds.rsaKey()
	if err != nil {
		return "", fmt.Errorf("service account key: %w", err)
	}

	encode := func(v any) (string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return base64.RawURLEncoding.EncodeToString(data), nil
	}

	head, err := encode(map[string]string{"alg": "RS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	claims, err := encode(map[string]any{
		"iss":   s.creds.ClientEmail,
		"scope": scope,
		"aud":   s.creds.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	if err != nil {
		return "", err
	}

	signingInput := head + "." + claims
	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing JWT: %w", err)
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
