package aggregates

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/fleet-backend/internal/data/repos/entity"
	"github.com/yungbote/fleet-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fleet-backend/internal/domain"
	domainagg "github.com/yungbote/fleet-backend/internal/domain/aggregates"
	"github.com/yungbote/fleet-backend/internal/platform/dbctx"
)

func strp(s string) *string   { return &s }
func f64p(f float64) *float64 { return &f }

func entry(id int64, item string) types.MirrorEntry {
	return types.MirrorEntry{ID: id, Item: strp(item), Weight: f64p(1), Volume: f64p(1), Self: fmt.Sprintf("http://x/loads/%d", id)}
}

type mirrorFixture struct {
	db    *gorm.DB
	repo  entity.Repo
	hooks *spyHooks
}

func newMirrorFixture(t *testing.T) *mirrorFixture {
	t.Helper()
	db := testutil.DB(t)
	return &mirrorFixture{db: db, repo: entity.NewRepo(db, testutil.Logger(t)), hooks: &spyHooks{}}
}

func (f *mirrorFixture) aggregate(policy domainagg.MissingMirrorPolicy, locker BoatLocker, attempts int) domainagg.MirrorAggregate {
	return NewMirrorAggregate(MirrorAggregateDeps{
		Base:     BaseDeps{Hooks: f.hooks, Locker: locker, Attempts: attempts},
		Entities: f.repo,
		Policy:   policy,
	})
}

func (f *mirrorFixture) boat(t *testing.T, loads ...types.MirrorEntry) *types.Boat {
	t.Helper()
	b := &types.Boat{Name: strp("Ark"), Loads: loads}
	testutil.SeedBoat(t, f.db, b)
	return b
}

// carried seeds a load whose carrier is b, or an unassigned load for nil.
func (f *mirrorFixture) carried(t *testing.T, b *types.Boat, item string, weight float64) *types.Load {
	t.Helper()
	l := &types.Load{Item: strp(item), Weight: f64p(weight), Volume: f64p(1)}
	if b != nil {
		l.Carrier = b.CarrierRef()
	}
	testutil.SeedLoad(t, f.db, l)
	l.Self = fmt.Sprintf("http://x/loads/%d", l.ID)
	f.rewrite(t, types.KindLoad, l.ID, l)
	return l
}

type encoder interface {
	Encode() (datatypes.JSON, error)
}

// rewrite replaces a record's data in place, leaving its version alone.
func (f *mirrorFixture) rewrite(t *testing.T, kind string, id int64, v encoder) {
	t.Helper()
	data, err := v.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := f.db.Model(&types.Entity{}).Where("kind = ? AND id = ?", kind, id).Update("data", data).Error; err != nil {
		t.Fatalf("rewrite %s %d: %v", kind, id, err)
	}
}

func (f *mirrorFixture) setMirror(t *testing.T, b *types.Boat, loads ...types.MirrorEntry) {
	t.Helper()
	b.Loads = loads
	f.rewrite(t, types.KindBoat, b.ID, b)
}

func TestSyncMirrorOnUpdateOverwritesMatchingEntry(t *testing.T) {
	f := newMirrorFixture(t)
	b := f.boat(t)
	first := f.carried(t, b, "a", 1)
	mid := f.carried(t, b, "b", 2)
	last := f.carried(t, b, "c", 3)
	f.setMirror(t, b, first.Mirror(), mid.Mirror(), last.Mirror())

	stale := *mid
	mid.Item, mid.Weight, mid.Volume = strp("b2"), f64p(99), nil
	f.rewrite(t, types.KindLoad, mid.ID, mid)

	agg := f.aggregate(domainagg.MissingMirrorRepair, nil, 0)
	if err := agg.SyncMirrorOnUpdate(context.Background(), &stale); err != nil {
		t.Fatalf("SyncMirrorOnUpdate: %v", err)
	}

	got := testutil.LoadBoat(t, f.db, b.ID)
	if len(got.Loads) != 3 {
		t.Fatalf("loads: %s", testutil.JSON(got.Loads))
	}
	e := got.Loads[1]
	if e.ID != mid.ID || *e.Item != "b2" || *e.Weight != 99 || e.Volume != nil {
		t.Fatalf("entry not taken from the stored load: %s", testutil.JSON(e))
	}
	if *got.Loads[0].Item != "a" || *got.Loads[2].Item != "c" {
		t.Fatalf("neighbours changed: %s", testutil.JSON(got.Loads))
	}
	if got.Version != 2 {
		t.Fatalf("expected one write, version=%d", got.Version)
	}
}

func TestSyncMirrorOnUpdateMissingEntryPolicies(t *testing.T) {
	t.Run("repair", func(t *testing.T) {
		f := newMirrorFixture(t)
		b := f.boat(t)
		kept := f.carried(t, b, "a", 1)
		f.setMirror(t, b, kept.Mirror())
		missing := f.carried(t, b, "e", 5)
		agg := f.aggregate(domainagg.MissingMirrorRepair, nil, 0)
		if err := agg.SyncMirrorOnUpdate(context.Background(), missing); err != nil {
			t.Fatalf("SyncMirrorOnUpdate: %v", err)
		}
		got := testutil.LoadBoat(t, f.db, b.ID)
		if len(got.Loads) != 2 || got.Loads[1].ID != missing.ID || *got.Loads[1].Item != "e" {
			t.Fatalf("expected appended entry: %s", testutil.JSON(got.Loads))
		}
	})

	t.Run("ignore", func(t *testing.T) {
		f := newMirrorFixture(t)
		b := f.boat(t)
		kept := f.carried(t, b, "a", 1)
		f.setMirror(t, b, kept.Mirror())
		missing := f.carried(t, b, "e", 5)
		agg := f.aggregate(domainagg.MissingMirrorIgnore, nil, 0)
		if err := agg.SyncMirrorOnUpdate(context.Background(), missing); err != nil {
			t.Fatalf("SyncMirrorOnUpdate: %v", err)
		}
		got := testutil.LoadBoat(t, f.db, b.ID)
		if len(got.Loads) != 1 || got.Version != 1 {
			t.Fatalf("expected boat untouched: %s version=%d", testutil.JSON(got.Loads), got.Version)
		}
	})
}

func TestSyncMirrorOnUpdateNoCarrierOrNoBoat(t *testing.T) {
	f := newMirrorFixture(t)
	agg := f.aggregate(domainagg.MissingMirrorRepair, nil, 0)

	if err := agg.SyncMirrorOnUpdate(context.Background(), &types.Load{ID: 1}); err != nil {
		t.Fatalf("unassigned load: %v", err)
	}
	ghost := &types.Load{ID: 1, Carrier: &types.Carrier{ID: 999}}
	if err := agg.SyncMirrorOnUpdate(context.Background(), ghost); err != nil {
		t.Fatalf("absent boat must be a no-op, got %v", err)
	}
	if ops := f.hooks.snapshot(); len(ops) != 1 || ops[0].Status != "success" {
		t.Fatalf("unexpected ops: %+v", ops)
	}
}

func TestSyncMirrorOnUpdateDropsEntryOfGoneOrMovedLoad(t *testing.T) {
	f := newMirrorFixture(t)
	b := f.boat(t)
	other := f.boat(t)
	kept := f.carried(t, b, "a", 1)
	moved := f.carried(t, other, "m", 2)
	f.setMirror(t, b, kept.Mirror(), entry(4242, "gone"), moved.Mirror())
	agg := f.aggregate(domainagg.MissingMirrorRepair, nil, 0)

	// Both calls name b as carrier, as a load read before the change would.
	if err := agg.SyncMirrorOnUpdate(context.Background(), &types.Load{ID: 4242, Carrier: b.CarrierRef()}); err != nil {
		t.Fatalf("sync deleted load: %v", err)
	}
	if err := agg.SyncMirrorOnUpdate(context.Background(), &types.Load{ID: moved.ID, Carrier: b.CarrierRef()}); err != nil {
		t.Fatalf("sync moved load: %v", err)
	}

	got := testutil.LoadBoat(t, f.db, b.ID)
	if len(got.Loads) != 1 || got.Loads[0].ID != kept.ID {
		t.Fatalf("expected only the carried load to stay: %s", testutil.JSON(got.Loads))
	}
}

func TestRemoveMirrorOnDelete(t *testing.T) {
	f := newMirrorFixture(t)
	b := f.boat(t, entry(1, "a"), entry(2, "b"), entry(3, "c"), entry(2, "dup"))
	agg := f.aggregate(domainagg.MissingMirrorRepair, nil, 0)

	if err := agg.RemoveMirrorOnDelete(context.Background(), b.ID, 2); err != nil {
		t.Fatalf("RemoveMirrorOnDelete: %v", err)
	}
	got := testutil.LoadBoat(t, f.db, b.ID)
	if len(got.Loads) != 2 || got.Loads[0].ID != 1 || got.Loads[1].ID != 3 {
		t.Fatalf("unexpected loads: %s", testutil.JSON(got.Loads))
	}

	if err := agg.RemoveMirrorOnDelete(context.Background(), b.ID, 42); err != nil {
		t.Fatalf("RemoveMirrorOnDelete no match: %v", err)
	}
	after := testutil.LoadBoat(t, f.db, b.ID)
	if len(after.Loads) != 2 || after.Version != got.Version {
		t.Fatalf("no-match removal must not write: %s version=%d", testutil.JSON(after.Loads), after.Version)
	}

	if err := agg.RemoveMirrorOnDelete(context.Background(), 999, 1); err != nil {
		t.Fatalf("absent boat must be a no-op, got %v", err)
	}
}

func TestAttachMirrorIsIdempotent(t *testing.T) {
	f := newMirrorFixture(t)
	b := f.boat(t)
	agg := f.aggregate(domainagg.MissingMirrorIgnore, nil, 0)
	load := f.carried(t, b, "nets", 3)

	for i := 0; i < 2; i++ {
		if err := agg.AttachMirror(context.Background(), b.ID, load); err != nil {
			t.Fatalf("AttachMirror #%d: %v", i, err)
		}
	}
	got := testutil.LoadBoat(t, f.db, b.ID)
	if len(got.Loads) != 1 || got.Loads[0].Self != load.Self {
		t.Fatalf("unexpected loads: %s", testutil.JSON(got.Loads))
	}
	if err := agg.AttachMirror(context.Background(), b.ID, nil); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("nil load: expected validation error, got %v", err)
	}
}

func TestAttachMirrorSkipsLoadNotCarried(t *testing.T) {
	f := newMirrorFixture(t)
	b := f.boat(t)
	agg := f.aggregate(domainagg.MissingMirrorRepair, nil, 0)
	loose := f.carried(t, nil, "loose", 1)

	if err := agg.AttachMirror(context.Background(), b.ID, loose); err != nil {
		t.Fatalf("AttachMirror: %v", err)
	}
	if got := testutil.LoadBoat(t, f.db, b.ID); len(got.Loads) != 0 || got.Version != 1 {
		t.Fatalf("attach of an unassigned load must not write: %s", testutil.JSON(got.Loads))
	}
}

func TestDetachMirror(t *testing.T) {
	f := newMirrorFixture(t)
	b := f.boat(t)
	agg := f.aggregate(domainagg.MissingMirrorRepair, nil, 0)
	back := f.carried(t, b, "back", 1)
	loose := f.carried(t, nil, "loose", 2)
	f.setMirror(t, b, back.Mirror(), loose.Mirror())

	if err := agg.DetachMirror(context.Background(), b.ID, back.ID); err != nil {
		t.Fatalf("DetachMirror carried: %v", err)
	}
	if err := agg.DetachMirror(context.Background(), b.ID, loose.ID); err != nil {
		t.Fatalf("DetachMirror loose: %v", err)
	}
	got := testutil.LoadBoat(t, f.db, b.ID)
	if len(got.Loads) != 1 || got.Loads[0].ID != back.ID {
		t.Fatalf("expected the re-assigned load to keep its entry: %s", testutil.JSON(got.Loads))
	}
}

func TestConcurrentMirrorWritesLoseNothing(t *testing.T) {
	cases := []struct {
		name     string
		locker   BoatLocker
		attempts int
	}{
		{name: "cas only", locker: nil, attempts: 32},
		{name: "keyed lock", locker: NewKeyedMutexLocker(), attempts: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newMirrorFixture(t)
			b := f.boat(t)
			agg := f.aggregate(domainagg.MissingMirrorRepair, tc.locker, tc.attempts)

			const n = 10
			loads := make([]*types.Load, n)
			for i := range loads {
				loads[i] = f.carried(t, b, "x", float64(i))
			}
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for _, l := range loads {
				wg.Add(1)
				go func(l *types.Load) {
					defer wg.Done()
					errs <- agg.AttachMirror(context.Background(), b.ID, l)
				}(l)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("AttachMirror: %v", err)
				}
			}

			got := testutil.LoadBoat(t, f.db, b.ID)
			if len(got.Loads) != n {
				t.Fatalf("lost update: %d of %d entries survived: %s", len(got.Loads), n, testutil.JSON(got.Loads))
			}
			seen := map[int64]bool{}
			for _, e := range got.Loads {
				seen[e.ID] = true
			}
			if len(seen) != n {
				t.Fatalf("duplicate entries: %s", testutil.JSON(got.Loads))
			}
		})
	}
}

// staleRepo rejects every compare-and-set, as if another writer always won.
type staleRepo struct {
	entity.Repo
}

func (staleRepo) UpdateByVersion(dbctx.Context, *types.Entity, int) (bool, error) { return false, nil }

func TestMirrorWriteGivesUpAfterAttempts(t *testing.T) {
	f := newMirrorFixture(t)
	b := f.boat(t)
	agg := NewMirrorAggregate(MirrorAggregateDeps{
		Base:     BaseDeps{Hooks: f.hooks, Attempts: 3},
		Entities: staleRepo{Repo: f.repo},
	})

	err := agg.AttachMirror(context.Background(), b.ID, f.carried(t, b, "x", 1))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	f.hooks.mu.Lock()
	defer f.hooks.mu.Unlock()
	if len(f.hooks.Retries) != 2 {
		t.Fatalf("retries: want=2 got=%d", len(f.hooks.Retries))
	}
	if len(f.hooks.Conflicts) != 1 || f.hooks.Conflicts[0] != "cargo.mirror.attach" {
		t.Fatalf("conflicts: %+v", f.hooks.Conflicts)
	}
}

func TestMirrorWriteHonoursCancelledContext(t *testing.T) {
	f := newMirrorFixture(t)
	b := f.boat(t)
	agg := f.aggregate(domainagg.MissingMirrorRepair, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := agg.AttachMirror(ctx, b.ID, &types.Load{ID: 1})
	if !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("expected retryable, got %v", err)
	}
}
