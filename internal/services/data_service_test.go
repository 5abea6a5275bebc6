package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/character-hub/internal/config"
	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/repo"
	"github.com/tbourn/character-hub/internal/snapshot"
	"github.com/tbourn/character-hub/internal/store"
)

func testStorageConfig() config.StorageConfig {
	return config.StorageConfig{SnapshotKey: "aiCharacterHubData", APIKeysKey: "aiHub_apiKeys", MaxImportBytes: 1 << 20}
}

func newDataFixture(t *testing.T) (*DataService, *store.Store) {
	t.Helper()
	st := store.New()
	return NewDataService(newServiceDB(t), repoFuncs{}, st, testStorageConfig(), zerolog.Nop()), st
}

func TestDataService_LoadEmpty(t *testing.T) {
	svc, _ := newDataFixture(t)
	ok, err := svc.Load(context.Background())
	if err != nil || ok {
		t.Fatalf("Load on empty db = %v, %v; want false, nil", ok, err)
	}
}

func TestDataService_SaveLoadRoundTrip(t *testing.T) {
	svc, st := newDataFixture(t)
	c := st.CreateCharacter(domain.CharacterInput{Name: "Ada", Tags: []string{"Wizard"}})
	ch := st.CreateChat(domain.ChatInput{Participants: []string{c.ID}})
	if _, err := st.CreateMessage(domain.MessageInput{ChatID: ch.ID, Sender: domain.UserSender, Content: "hi"}); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if err := svc.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh := store.New()
	other := NewDataService(svc.DB, repoFuncs{}, fresh, testStorageConfig(), zerolog.Nop())
	ok, err := other.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if got := fresh.Counts(); got != st.Counts() {
		t.Fatalf("counts after load %+v, want %+v", got, st.Counts())
	}
	loaded, err := fresh.GetCharacter(c.ID)
	if err != nil || loaded.Name != "Ada" {
		t.Fatalf("character not restored: %+v, %v", loaded, err)
	}
	status, _ := other.Status(context.Background())
	if status.LastSaved == nil {
		t.Fatalf("LastSaved should be set after load")
	}
}

func TestDataService_LoadCorruptLeavesStore(t *testing.T) {
	svc, st := newDataFixture(t)
	st.CreateCharacter(domain.CharacterInput{Name: "Keep"})
	if err := repo.PutBlob(context.Background(), svc.DB, svc.Key, []byte(`{"version":`)); err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	if _, err := svc.Load(context.Background()); !errors.Is(err, snapshot.ErrInvalidFormat) {
		t.Fatalf("want ErrInvalidFormat, got %v", err)
	}
	if st.Counts().Characters != 1 {
		t.Fatalf("store changed by corrupt load")
	}
}

func TestDataService_ExportImport(t *testing.T) {
	src, st := newDataFixture(t)
	st.CreateCharacter(domain.CharacterInput{Name: "Ada"})
	st.CreateScenario(domain.ScenarioInput{Name: "Heist"})

	var buf bytes.Buffer
	if err := src.Export(context.Background(), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Fatalf("export should be indented")
	}

	dst, dstStore := newDataFixture(t)
	dstStore.CreateCharacter(domain.CharacterInput{Name: "Replaced"})
	counts, err := dst.Import(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if counts.Characters != 1 || counts.Scenarios != 1 || counts.Users != 1 {
		t.Fatalf("counts %+v", counts)
	}
	if res := dstStore.ListCharacters(domain.CharacterFilter{}); res[0].Name != "Ada" {
		t.Fatalf("import should replace contents, got %+v", res)
	}
	// Import persists immediately.
	if _, err := repo.GetBlob(context.Background(), dst.DB, dst.Key); err != nil {
		t.Fatalf("import not saved: %v", err)
	}
}

func TestDataService_ImportRejects(t *testing.T) {
	svc, st := newDataFixture(t)
	st.CreateCharacter(domain.CharacterInput{Name: "Keep"})

	if _, err := svc.Import(context.Background(), strings.NewReader(`{"data":null}`)); !errors.Is(err, snapshot.ErrInvalidFormat) {
		t.Fatalf("want ErrInvalidFormat, got %v", err)
	}
	if _, err := svc.Import(context.Background(), strings.NewReader("not json")); !errors.Is(err, snapshot.ErrInvalidFormat) {
		t.Fatalf("want ErrInvalidFormat, got %v", err)
	}

	svc.MaxImportBytes = 8
	if _, err := svc.Import(context.Background(), strings.NewReader(`{"data":{}}`)); !errors.Is(err, ErrImportTooLarge) {
		t.Fatalf("want ErrImportTooLarge, got %v", err)
	}
	if st.Counts().Characters != 1 {
		t.Fatalf("rejected import changed the store")
	}
}

func TestDataService_ClearAndStatus(t *testing.T) {
	svc, st := newDataFixture(t)
	st.CreateCharacter(domain.CharacterInput{Name: "Ada"})
	_ = svc.Save(context.Background())

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.StoredKeys) != 1 || status.StoredKeys[0] != svc.Key || status.LastSaved == nil || !status.AutoSave {
		t.Fatalf("status %+v", status)
	}

	if err := svc.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	status, _ = svc.Status(context.Background())
	if status.Counts.Characters != 0 || status.Counts.Users != 1 || len(status.StoredKeys) != 0 || status.LastSaved != nil {
		t.Fatalf("status after clear %+v", status)
	}
}

func TestDataService_RunHonoursAutoSave(t *testing.T) {
	svc, st := newDataFixture(t)
	off := false
	st.UpdatePreferences(domain.PreferencesPatch{AutoSave: &off})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	if _, err := repo.GetBlob(context.Background(), svc.DB, svc.Key); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("autosave ran while disabled: %v", err)
	}

	on := true
	st.UpdatePreferences(domain.PreferencesPatch{AutoSave: &on})
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := repo.GetBlob(context.Background(), svc.DB, svc.Key); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("autosave did not run after enabling")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

// memRepo is an in-memory BlobRepo. onPut runs before every write.
type memRepo struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	putErr error
	delErr error
	onPut  func()
}

func newMemRepo() *memRepo { return &memRepo{blobs: map[string][]byte{}} }

func (m *memRepo) PutBlob(_ context.Context, _ *gorm.DB, key string, payload []byte) error {
	if m.onPut != nil {
		m.onPut()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.blobs[key] = append([]byte(nil), payload...)
	return nil
}

func (m *memRepo) GetBlob(_ context.Context, _ *gorm.DB, key string) (*domain.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &domain.Blob{Key: key, Payload: b}, nil
}

func (m *memRepo) DeleteBlob(_ context.Context, _ *gorm.DB, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.blobs, key)
	return nil
}

func (m *memRepo) ListBlobKeys(context.Context, *gorm.DB) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	return keys, nil
}

func characterNames(st *store.Store) []string {
	var out []string
	for _, c := range st.ListCharacters(domain.CharacterFilter{}) {
		out = append(out, c.Name)
	}
	return out
}

func TestDataService_ImportWaitsForInFlightSave(t *testing.T) {
	mem := newMemRepo()
	st := store.New()
	st.CreateCharacter(domain.CharacterInput{Name: "Old"})
	svc := NewDataService(nil, mem, st, testStorageConfig(), zerolog.Nop())

	next := store.New()
	next.CreateCharacter(domain.CharacterInput{Name: "New"})
	payload, err := snapshot.Marshal(next.Export())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	mem.onPut = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	saveDone := make(chan error, 1)
	go func() { saveDone <- svc.Save(context.Background()) }()
	<-entered

	importDone := make(chan error, 1)
	go func() {
		_, err := svc.Import(context.Background(), bytes.NewReader(payload))
		importDone <- err
	}()

	select {
	case err := <-importDone:
		t.Fatalf("import finished while a save was writing: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	if got := characterNames(st); len(got) != 1 || got[0] != "Old" {
		t.Fatalf("store replaced during an in-flight save: %v", got)
	}

	close(release)
	if err := <-saveDone; err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := <-importDone; err != nil {
		t.Fatalf("Import: %v", err)
	}

	blob, err := mem.GetBlob(context.Background(), nil, svc.Key)
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	saved, err := snapshot.Unmarshal(blob.Payload)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(saved.Data.Characters) != 1 || saved.Data.Characters[0].Record.Name != "New" {
		t.Fatalf("stored snapshot is stale: %+v", saved.Data.Characters)
	}
}

func TestDataService_ClearWaitsForInFlightSave(t *testing.T) {
	mem := newMemRepo()
	st := store.New()
	st.CreateCharacter(domain.CharacterInput{Name: "Gone"})
	svc := NewDataService(nil, mem, st, testStorageConfig(), zerolog.Nop())

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	mem.onPut = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	saveDone := make(chan error, 1)
	go func() { saveDone <- svc.Save(context.Background()) }()
	<-entered

	clearDone := make(chan error, 1)
	go func() { clearDone <- svc.Clear(context.Background()) }()

	select {
	case <-clearDone:
		t.Fatalf("clear finished while a save was writing")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-saveDone
	if err := <-clearDone; err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := mem.GetBlob(context.Background(), nil, svc.Key); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("cleared snapshot came back: %v", err)
	}
	if st.Counts().Characters != 0 {
		t.Fatalf("store not cleared")
	}
}

func TestDataService_PersistFailuresAreLogged(t *testing.T) {
	mem := newMemRepo()
	mem.putErr = errors.New("disk full")
	mem.delErr = errors.New("disk gone")
	var logs bytes.Buffer
	st := store.New()
	svc := NewDataService(nil, mem, st, testStorageConfig(), zerolog.New(&logs))

	next := store.New()
	next.CreateCharacter(domain.CharacterInput{Name: "Ada"})
	payload, err := snapshot.Marshal(next.Export())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	counts, err := svc.Import(context.Background(), bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Import should succeed when only the write fails, got %v", err)
	}
	if counts.Characters != 1 || st.Counts().Characters != 1 {
		t.Fatalf("import not applied: %+v", counts)
	}
	if !strings.Contains(logs.String(), "save after import failed") || !strings.Contains(logs.String(), "disk full") {
		t.Fatalf("save failure not logged: %s", logs.String())
	}

	if err := svc.Clear(context.Background()); err != nil {
		t.Fatalf("Clear should succeed when only the delete fails, got %v", err)
	}
	if st.Counts().Characters != 0 {
		t.Fatalf("clear not applied")
	}
	if !strings.Contains(logs.String(), "disk gone") {
		t.Fatalf("delete failure not logged: %s", logs.String())
	}

	// An explicit save still reports the failure.
	if err := svc.Save(context.Background()); err == nil {
		t.Fatalf("Save should return the write error")
	}
}
