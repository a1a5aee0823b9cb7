package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/sweetshop/internal/events"
	"github.com/Skotchmaster/sweetshop/internal/hash"
	"github.com/Skotchmaster/sweetshop/internal/metrics"
	"github.com/Skotchmaster/sweetshop/internal/models"
	"github.com/Skotchmaster/sweetshop/internal/repo"
	"github.com/Skotchmaster/sweetshop/internal/tokens"
	pkgdb "github.com/Skotchmaster/sweetshop/pkg/db"
)

type fixture struct {
	repo    *repo.GormRepo
	auth    *AuthService
	sweets  *SweetService
	events  *events.Recorder
	index   *fakeIndex
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := pkgdb.Open(context.Background(), pkgdb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	r := repo.New(db)
	require.NoError(t, r.Migrate(context.Background()))

	rec := &events.Recorder{}
	ix := &fakeIndex{docs: map[uuid.UUID]models.Sweet{}}
	m := metrics.New(prometheus.NewRegistry())
	return &fixture{
		repo: r,
		auth: &AuthService{
			Repo:      r,
			Hasher:    &hash.PasswordHasher{Scheme: hash.SchemeSHA256},
			Tokens:    tokens.NewService([]byte("test-secret"), time.Hour),
			Publisher: rec,
			Metrics:   m,
		},
		sweets:  &SweetService{Repo: r, Index: ix, Publisher: rec, Metrics: m},
		events:  rec,
		index:   ix,
		metrics: m,
	}
}

type fakeIndex struct {
	mu   sync.Mutex
	docs map[uuid.UUID]models.Sweet
	err  error
}

func (f *fakeIndex) Put(_ context.Context, s *models.Sweet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs[s.ID] = *s
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return f.err
}

func (f *fakeIndex) Search(_ context.Context, q string, from, size int) (int64, []models.Sweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Sweet
	for _, d := range f.docs {
		if strings.Contains(strings.ToLower(d.Name+" "+d.Description), strings.ToLower(q)) {
			out = append(out, d)
		}
	}
	total := int64(len(out))
	if from >= len(out) {
		return total, []models.Sweet{}, nil
	}
	out = out[from:]
	if len(out) > size {
		out = out[:size]
	}
	return total, out, nil
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) sweet(t *testing.T, name, category string, price float64, qty int) *models.Sweet {
	t.Helper()
	s, err := f.sweets.Create(context.Background(), SweetInput{Name: name, Category: category, Price: price, Quantity: qty})
	require.NoError(t, err)
	return s
}
