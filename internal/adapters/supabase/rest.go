package supabase

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"

	domainauth "github.com/reelapps/reelhunter/internal/domain/auth"
	"github.com/reelapps/reelhunter/internal/ports"
)

const (
	profilesTable = "profiles"

	// codeNoRows is PostgREST's answer to a single-object request that matched nothing.
	codeNoRows = "PGRST116"
)

var _ ports.ProfileStore = (*Profiles)(nil)

// TokenSource supplies the bearer token row requests run under, so row-level security
// sees the signed-in user. An empty token falls back to the anon key.
type TokenSource interface {
	AccessToken() string
}

// Profiles reads and writes the profiles table through PostgREST.
type Profiles struct {
	client *Client
	tokens TokenSource
}

// NewProfiles creates a profile store that authenticates with tokens.
func (c *Client) NewProfiles(tokens TokenSource) *Profiles {
	return &Profiles{client: c, tokens: tokens}
}

func (p *Profiles) token() string {
	if p.tokens == nil {
		return ""
	}
	return p.tokens.AccessToken()
}

func (p *Profiles) GetProfile(ctx context.Context, id string) (*domainauth.Profile, error) {
	rc, err := p.client.restClient(p.token())
	if err != nil {
		return nil, err
	}
	rows, err := detach(ctx, func() ([]domainauth.Profile, error) {
		var rows []domainauth.Profile
		_, err := rc.From(profilesTable).Select("*", "", false).Eq("id", id).ExecuteTo(&rows)
		return rows, err
	})
	if err != nil {
		if hasCode(err, codeNoRows) {
			return nil, ports.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, ports.ErrProfileNotFound
	}
	return &rows[0], nil
}

func (p *Profiles) InsertProfile(ctx context.Context, in domainauth.Profile) (*domainauth.Profile, error) {
	row := map[string]any{
		"id":         in.ID,
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"email":      in.Email,
		"role":       domainauth.NormalizeRole(string(in.Role)),
	}
	rc, err := p.client.restClient(p.token())
	if err != nil {
		return nil, err
	}
	rows, err := detach(ctx, func() ([]domainauth.Profile, error) {
		var rows []domainauth.Profile
		_, err := rc.From(profilesTable).Insert(row, false, "", "representation", "").ExecuteTo(&rows)
		return rows, err
	})
	if err != nil {
		if hasCode(err, pgerrcode.UniqueViolation) {
			return nil, ports.ErrProfileConflict
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert profile: no row returned for %s", in.ID)
	}
	return &rows[0], nil
}

// hasCode reports whether err is a PostgREST error carrying code. The client renders
// those as "(<code>) <message>".
func hasCode(err error, code string) bool {
	return err != nil && strings.Contains(err.Error(), "("+code+")")
}
