package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shellform/shellform/pkg/resource"
	"github.com/shellform/shellform/pkg/value"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "state.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSpec() *resource.Spec {
	return &resource.Spec{
		ID:     value.Known("abc123"),
		Inputs: value.Strings(map[string]string{"path": "/opt/app"}),
		Outputs: value.Known(map[string]value.String{
			"exists": value.Known("yes"),
			"owner":  value.Null[string](),
		}),
		Create:  resource.CommandSpec{Cmd: "mkdir -p /opt/app"},
		Destroy: resource.CommandSpec{Cmd: "rm -rf /opt/app"},
		Reads: map[string]resource.ReadSpec{
			"exists": {CommandSpec: resource.CommandSpec{Cmd: "test -d /opt/app && echo yes"}, StripTrailingNewline: true},
		},
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("empty path accepted")
	}
}

func TestSaveAndGetResource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := RecordFromSpec("app_dir", sampleSpec(), value.Known[int64](2))
	if err != nil {
		t.Fatalf("RecordFromSpec: %v", err)
	}
	if err := store.SaveResource(ctx, rec); err != nil {
		t.Fatalf("SaveResource: %v", err)
	}

	got, err := store.GetResource(ctx, "app_dir")
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	if got.ID != "abc123" {
		t.Errorf("ID = %q, want abc123", got.ID)
	}
	if got.Version == nil || *got.Version != 2 {
		t.Errorf("Version = %v, want 2", got.Version)
	}
	if got.Inputs["path"].Or("") != "/opt/app" {
		t.Errorf("Inputs = %#v", got.Inputs)
	}
	if !got.Outputs["owner"].IsNull() {
		t.Errorf("null output did not round-trip: %#v", got.Outputs["owner"])
	}
	if got.Outputs["exists"].Or("") != "yes" {
		t.Errorf("Outputs = %#v", got.Outputs)
	}
}

func TestSaveResourceUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := RecordFromSpec("app_dir", sampleSpec(), value.Known[int64](1))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveResource(ctx, rec); err != nil {
		t.Fatal(err)
	}

	spec := sampleSpec()
	outputs, _ := spec.Outputs.Get()
	outputs["exists"] = value.Known("still")
	rec, err = RecordFromSpec("app_dir", spec, value.Known[int64](2))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveResource(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetResource(ctx, "app_dir")
	if err != nil {
		t.Fatal(err)
	}
	if *got.Version != 2 || got.Outputs["exists"].Or("") != "still" {
		t.Errorf("upsert lost data: version=%v exists=%#v", got.Version, got.Outputs["exists"])
	}
}

func TestImportedResourceHasNilVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := RecordFromSpec("imported", sampleSpec(), value.Unknown[int64]())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveResource(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetResource(ctx, "imported")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != nil {
		t.Errorf("Version = %v, want nil for imported resource", got.Version)
	}
	if !got.VersionValue().IsUnknown() {
		t.Errorf("VersionValue = %#v, want unknown", got.VersionValue())
	}
}

func TestGetMissingResource(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetResource(context.Background(), "nope")
	if !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("err = %v, want ErrResourceNotFound", err)
	}
}

func TestDeleteResource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := RecordFromSpec("app_dir", sampleSpec(), value.Known[int64](1))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveResource(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteResource(ctx, "app_dir"); err != nil {
		t.Fatalf("DeleteResource: %v", err)
	}
	if _, err := store.GetResource(ctx, "app_dir"); !errors.Is(err, ErrResourceNotFound) {
		t.Error("resource still present after delete")
	}
	if err := store.DeleteResource(ctx, "app_dir"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("double delete err = %v, want ErrResourceNotFound", err)
	}
}

func TestListResources(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		rec, err := RecordFromSpec(name, sampleSpec(), value.Known[int64](1))
		if err != nil {
			t.Fatal(err)
		}
		if err := store.SaveResource(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := store.ListResources(ctx)
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	if len(recs) != 2 || recs[0].Name != "alpha" || recs[1].Name != "zeta" {
		t.Errorf("list order wrong: %v, %v", recs[0].Name, recs[1].Name)
	}
}

func TestStoredSpecRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := RecordFromSpec("app_dir", sampleSpec(), value.Known[int64](1))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveResource(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetResource(ctx, "app_dir")
	if err != nil {
		t.Fatal(err)
	}
	spec, err := got.StoredSpec()
	if err != nil {
		t.Fatalf("StoredSpec: %v", err)
	}
	if spec.Destroy.Cmd != "rm -rf /opt/app" {
		t.Errorf("destroy command did not survive: %q", spec.Destroy.Cmd)
	}
	if spec.ID.Or("") != "abc123" {
		t.Errorf("ID = %#v", spec.ID)
	}
	if !spec.Reads["exists"].StripTrailingNewline {
		t.Error("read flags did not survive")
	}
}

func TestRecordFromSpecRejectsUnknown(t *testing.T) {
	spec := sampleSpec()
	spec.Outputs = value.Known(map[string]value.String{"pending": value.Unknown[string]()})
	if _, err := RecordFromSpec("x", spec, value.Known[int64](1)); err == nil {
		t.Fatal("unresolved output accepted")
	}
}

func TestPriorSpec(t *testing.T) {
	rec, err := RecordFromSpec("app_dir", sampleSpec(), value.Known[int64](3))
	if err != nil {
		t.Fatal(err)
	}

	declared := sampleSpec()
	declared.ID = value.Null[string]()
	declared.Outputs = value.Unknown[map[string]value.String]()

	prior, version := rec.PriorSpec(declared)
	if prior.ID.Or("") != "abc123" {
		t.Errorf("prior ID = %#v", prior.ID)
	}
	if got := version.Or(0); got != 3 {
		t.Errorf("version = %d, want 3", got)
	}
	outputs, _ := prior.Outputs.Get()
	if outputs["exists"].Or("") != "yes" {
		t.Errorf("prior outputs = %#v", outputs)
	}
	if prior.Create.Cmd != declared.Create.Cmd {
		t.Error("declaration parts not taken from manifest")
	}
}
