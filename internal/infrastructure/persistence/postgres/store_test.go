package postgres_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/voucher-approval/internal/application/workflow"
	"github.com/garyjia/voucher-approval/internal/domain/entity"
	domainwf "github.com/garyjia/voucher-approval/internal/domain/workflow"
	"github.com/garyjia/voucher-approval/internal/infrastructure/persistence/postgres"
)

// startStore reuses TEST_PG_DSN when set, otherwise starts a Postgres 16 container
func startStore(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		pgC, err := tcpostgres.Run(ctx,
			"postgres:16",
			tcpostgres.WithDatabase("vouchers"),
			tcpostgres.WithUsername("voucher"),
			tcpostgres.WithPassword("voucher"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Skipf("postgres container unavailable: %v", err)
		}
		t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

		dsn, err = pgC.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)

	store := postgres.NewStore(pool, zap.NewNop())
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))
	// Running twice is a no-op.
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestStore_EngineRaces(t *testing.T) {
	store := startStore(t)
	ctx := context.Background()
	repos := store.Repositories()
	engine := workflow.NewEngine(repos, domainwf.DefaultCatalog())

	id := "pg-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	now := time.Now()
	require.NoError(t, repos.Vouchers.Create(ctx, &entity.Voucher{
		ID: id, OwnerID: "gso-1", OriginRole: domainwf.RoleGSO, Variant: domainwf.VariantGSO,
		Status: domainwf.StatePending, Payee: "Acme", Particulars: "Chairs", AmountCents: 990000,
		CreatedAt: now, UpdatedAt: now,
	}))

	t.Run("same stage has one winner", func(t *testing.T) {
		var wins, dups int32
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < 8; i++ {
			i := i
			g.Go(func() error {
				_, err := engine.Act(gctx, id, workflow.Actor{ID: "dh-" + strconv.Itoa(i), Role: domainwf.RoleDepartmentHead}, domainwf.DecisionApproved, "")
				switch {
				case err == nil:
					atomic.AddInt32(&wins, 1)
				case errors.Is(err, domainwf.ErrDuplicateAction):
					atomic.AddInt32(&dups, 1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), wins)
		assert.Equal(t, int32(7), dups)
	})

	_, err := engine.Act(ctx, id, workflow.Actor{ID: "mayor", Role: domainwf.RoleMayor}, domainwf.DecisionApproved, "")
	require.NoError(t, err)

	t.Run("one vote per reviewer", func(t *testing.T) {
		var accepted int32
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < 6; i++ {
			g.Go(func() error {
				res, err := engine.CastQuorumVote(gctx, id, workflow.Actor{ID: "bac-1", Role: domainwf.RoleBACMember})
				if err != nil {
					return err
				}
				if res.Result == domainwf.VoteAccepted {
					atomic.AddInt32(&accepted, 1)
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(1), accepted)

		n, err := repos.Reviews.Count(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("progress reflects quorum", func(t *testing.T) {
		p, err := engine.GetProgress(ctx, id)
		require.NoError(t, err)
		cur, ok := p.Current()
		require.True(t, ok)
		assert.Equal(t, 3, cur.Stage)
		assert.Equal(t, 1, cur.Votes)
	})
}

func TestStore_SettingsUpsert(t *testing.T) {
	store := startStore(t)
	ctx := context.Background()
	repos := store.Repositories()

	key := "test_key_" + strconv.FormatInt(time.Now().UnixNano(), 10)
	require.NoError(t, repos.Settings.Set(ctx, &entity.SystemConfig{Key: key, Value: "1", UpdatedAt: time.Now()}))
	require.NoError(t, repos.Settings.Set(ctx, &entity.SystemConfig{Key: key, Value: "2", UpdatedAt: time.Now()}))

	cfg, found, err := repos.Settings.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "2", cfg.Value)
}
