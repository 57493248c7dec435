// Package seed loads development fixtures into the swaps store and prints
// access tokens for the seeded users.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/skillswap/internal/platform/cmd"
	"github.com/louisbranch/skillswap/internal/services/swaps/identity"
	"github.com/louisbranch/skillswap/internal/services/swaps/storage"
	"github.com/louisbranch/skillswap/internal/services/swaps/storage/sqlstore"
)

//go:embed fixtures/demo.json
var demoFixture []byte

// Config holds seed command configuration.
type Config struct {
	DBDriver          string        `env:"SWAPS_DB_DRIVER"     envDefault:"sqlite"`
	DBDSN             string        `env:"SWAPS_DB_DSN"        envDefault:"data/swaps.db"`
	AccessTokenSecret string        `env:"ACCESS_TOKEN_SECRET"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL"    envDefault:"15m"`
	FixturePath       string
	Verbose           bool
}

// Fixture is the seed document: skills first, then users and their offers.
type Fixture struct {
	Skills []FixtureSkill `json:"skills"`
	Users  []FixtureUser  `json:"users"`
}

// FixtureSkill is one catalog skill.
type FixtureSkill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FixtureUser is one account and the skills it offers.
type FixtureUser struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Admin  bool     `json:"admin"`
	Banned bool     `json:"banned"`
	Offers []string `json:"offers"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver (sqlite or postgres)")
	fs.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "database path (sqlite) or connection string (postgres)")
	fs.DurationVar(&cfg.AccessTokenTTL, "access-token-ttl", cfg.AccessTokenTTL, "lifetime of the printed access tokens")
	fs.StringVar(&cfg.FixturePath, "fixture", "", "fixture JSON file (default: built-in demo)")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run seeds the store described by cfg and writes one "user_id<TAB>token"
// line per seeded user that can sign in.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if ctx == nil {
		ctx = context.Background()
	}

	issuer, err := identity.NewIssuer(identity.Config{
		Secret: []byte(cfg.AccessTokenSecret),
		TTL:    cfg.AccessTokenTTL,
	})
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}
	fixture, err := loadFixture(cfg.FixturePath)
	if err != nil {
		return err
	}

	if isSQLite(cfg.DBDriver) {
		if dir := filepath.Dir(cfg.DBDSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
		}
	}
	store, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open swaps store: %w", err)
	}
	defer store.Close()

	if err := Apply(ctx, store, fixture, time.Now().UTC()); err != nil {
		return err
	}
	if cfg.Verbose {
		fmt.Fprintf(errOut, "seeded %d skills and %d users into %s\n", len(fixture.Skills), len(fixture.Users), cfg.DBDSN)
	}

	for _, user := range fixture.Users {
		if user.Banned {
			continue
		}
		token, expiresAt, err := issuer.Issue(user.ID)
		if err != nil {
			return fmt.Errorf("issue token for %s: %w", user.ID, err)
		}
		fmt.Fprintf(out, "%s\t%s\n", user.ID, token)
		if cfg.Verbose {
			fmt.Fprintf(errOut, "token for %s expires at %s\n", user.ID, expiresAt.Format(time.RFC3339))
		}
	}
	return nil
}

// Store is the write surface the seeder needs.
type Store interface {
	storage.UserStore
	storage.SkillStore
}

// Apply upserts the fixture. Running it twice leaves the same state.
func Apply(ctx context.Context, store Store, fixture Fixture, now time.Time) error {
	if store == nil {
		return errors.New("store is required")
	}
	for _, skill := range fixture.Skills {
		if err := store.PutSkill(ctx, storage.SkillRecord{
			ID:          skill.ID,
			Name:        skill.Name,
			Description: skill.Description,
		}); err != nil {
			return fmt.Errorf("put skill %s: %w", skill.ID, err)
		}
	}
	for _, user := range fixture.Users {
		if err := store.PutUser(ctx, storage.UserRecord{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			IsAdmin:   user.Admin,
			IsBanned:  user.Banned,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("put user %s: %w", user.ID, err)
		}
		for _, skillID := range user.Offers {
			if err := store.PutOfferedSkill(ctx, user.ID, skillID); err != nil {
				return fmt.Errorf("offer skill %s for %s: %w", skillID, user.ID, err)
			}
		}
	}
	return nil
}

func loadFixture(path string) (Fixture, error) {
	data := demoFixture
	if path = strings.TrimSpace(path); path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Fixture{}, fmt.Errorf("read fixture: %w", err)
		}
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates a fixture document.
func ParseFixture(data []byte) (Fixture, error) {
	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}

	skills := make(map[string]struct{}, len(fixture.Skills))
	for _, skill := range fixture.Skills {
		if strings.TrimSpace(skill.ID) == "" || strings.TrimSpace(skill.Name) == "" {
			return Fixture{}, errors.New("fixture skill requires id and name")
		}
		skills[skill.ID] = struct{}{}
	}
	for _, user := range fixture.Users {
		if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
			return Fixture{}, errors.New("fixture user requires id and email")
		}
		for _, skillID := range user.Offers {
			if _, ok := skills[skillID]; !ok {
				return Fixture{}, fmt.Errorf("user %s offers unknown skill %q", user.ID, skillID)
			}
		}
	}
	return fixture, nil
}

func isSQLite(driver string) bool {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", sqlstore.DriverSQLite:
		return true
	default:
		return false
	}
}
