package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/datachat/internal/config"
	"github.com/ashureev/datachat/internal/domain"
	"github.com/ashureev/datachat/internal/query"
	"github.com/ashureev/datachat/internal/session"
	"github.com/ashureev/datachat/internal/shared"
	"github.com/ashureev/datachat/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore serves documents from memory through the same builder the real drivers use.
type fakeStore struct {
	mu      sync.Mutex
	dbs     map[string]map[string][]map[string]any
	fetches int
	err     error
}

func (f *fakeStore) ListDatabases(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for db := range f.dbs {
		out = append(out, db)
	}
	return out, nil
}

func (f *fakeStore) ListCollections(_ context.Context, db string) ([]string, error) {
	colls, ok := f.dbs[db]
	if !ok {
		return nil, fmt.Errorf("%w: database %q", shared.ErrNotFound, db)
	}
	var out []string
	for c := range colls {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) FetchDataset(_ context.Context, db, coll string) (*domain.Dataset, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	docs, ok := f.dbs[db][coll]
	if !ok {
		return nil, fmt.Errorf("%w: collection %s.%s", shared.ErrNotFound, db, coll)
	}

	b := store.NewDatasetBuilder()
	for _, d := range docs {
		var fields []store.Field
		for _, k := range []string{"amount", "date"} {
			if v, ok := d[k]; ok {
				fields = append(fields, store.Field{Key: k, Value: v})
			}
		}
		b.Add(fmt.Sprint(d["_id"]), fields)
	}
	return b.Build(), nil
}

func (f *fakeStore) Ping(context.Context) error  { return f.err }
func (f *fakeStore) Close(context.Context) error { return nil }

var _ store.Connector = (*fakeStore)(nil)

type fakeAnswerer struct {
	resp     domain.Response
	err      error
	active   int
	maxSeen  int
	mu       sync.Mutex
	delay    time.Duration
	question string
}

func (f *fakeAnswerer) Answer(_ context.Context, _ *domain.Dataset, q string) (domain.Response, error) {
	f.mu.Lock()
	f.active++
	f.maxSeen = max(f.maxSeen, f.active)
	f.question = q
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	return f.resp, f.err
}

func shopStore() *fakeStore {
	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }
	return &fakeStore{dbs: map[string]map[string][]map[string]any{
		"shop": {
			"orders": {
				{"_id": "o1", "amount": 10, "date": day(1)},
				{"_id": "o2", "amount": 20, "date": day(2)},
				{"_id": "o3", "amount": 30, "date": day(3)},
			},
			"empty": {},
		},
		"crm": {"customers": {{"_id": "c1"}}},
	}}
}

func selectOrders(t *testing.T, svc *Service, sess *session.Session) {
	t.Helper()
	require.NoError(t, svc.SelectDatabase(context.Background(), sess, "shop"))
	require.NoError(t, svc.SelectCollection(context.Background(), sess, "orders"))
}

func TestSelectCollectionFetchesDataset(t *testing.T) {
	svc := NewService(shopStore(), &fakeAnswerer{}, 2)
	sess := session.New("s")

	selectOrders(t, svc, sess)

	ds := sess.Dataset()
	require.NotNil(t, ds)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []string{"_id", "amount", "date"}, ds.Columns())
	assert.Equal(t, "o1", ds.Values(0)[0])

	preview := svc.Preview(sess)
	assert.Equal(t, 2, preview.Len())
}

func TestFetchIsIdempotent(t *testing.T) {
	st := shopStore()
	svc := NewService(st, &fakeAnswerer{}, 5)
	sess := session.New("s")

	selectOrders(t, svc, sess)
	first := sess.Dataset()
	require.NoError(t, svc.SelectCollection(context.Background(), sess, "orders"))

	assert.Equal(t, 2, st.fetches)
	assert.True(t, first.Equal(sess.Dataset()))
}

func TestEmptyCollectionIsZeroRows(t *testing.T) {
	svc := NewService(shopStore(), &fakeAnswerer{}, 5)
	sess := session.New("s")

	require.NoError(t, svc.SelectDatabase(context.Background(), sess, "shop"))
	require.NoError(t, svc.SelectCollection(context.Background(), sess, "empty"))

	require.NotNil(t, sess.Dataset())
	assert.Equal(t, 0, sess.Dataset().Len())
}

func TestSelectCollectionErrorKeepsSelection(t *testing.T) {
	svc := NewService(shopStore(), &fakeAnswerer{}, 5)
	sess := session.New("s")
	require.NoError(t, svc.SelectDatabase(context.Background(), sess, "shop"))

	err := svc.SelectCollection(context.Background(), sess, "vanished")

	assert.True(t, errors.Is(err, shared.ErrNotFound))
	assert.Equal(t, domain.Selection{Database: "shop", Collection: "vanished"}, sess.Selection())
	assert.Nil(t, sess.Dataset())
	assert.Nil(t, svc.Preview(sess))
}

func TestSelectCollectionRequiresDatabase(t *testing.T) {
	svc := NewService(shopStore(), &fakeAnswerer{}, 5)

	err := svc.SelectCollection(context.Background(), session.New("s"), "orders")
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestCollectionsRequireDatabase(t *testing.T) {
	svc := NewService(shopStore(), &fakeAnswerer{}, 5)
	sess := session.New("s")

	_, err := svc.Collections(context.Background(), sess)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	require.NoError(t, svc.SelectDatabase(context.Background(), sess, "crm"))
	colls, err := svc.Collections(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers"}, colls)
}

func TestReselectDatabaseClearsCollection(t *testing.T) {
	svc := NewService(shopStore(), &fakeAnswerer{}, 5)
	sess := session.New("s")
	selectOrders(t, svc, sess)

	require.NoError(t, svc.SelectDatabase(context.Background(), sess, "crm"))

	assert.Equal(t, domain.Selection{Database: "crm"}, sess.Selection())
	assert.Nil(t, sess.Dataset())
}

func TestApplySelection(t *testing.T) {
	svc := NewService(shopStore(), &fakeAnswerer{}, 5)
	sess := session.New("s")

	require.NoError(t, svc.ApplySelection(context.Background(), sess, SelectionRequest{Database: "shop", Collection: "orders"}))
	assert.Equal(t, 3, sess.Dataset().Len())

	require.NoError(t, svc.ApplySelection(context.Background(), sess, SelectionRequest{Database: "shop"}))
	assert.Equal(t, "orders", sess.Selection().Collection)

	err := svc.ApplySelection(context.Background(), sess, SelectionRequest{})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestDatabasesConnectionError(t *testing.T) {
	st := shopStore()
	st.err = fmt.Errorf("%w: dial tcp", shared.ErrConnection)

	_, err := NewService(st, &fakeAnswerer{}, 5).Databases(context.Background())
	assert.True(t, errors.Is(err, shared.ErrConnection))
}

func TestAskAppendsEntry(t *testing.T) {
	ans := &fakeAnswerer{resp: domain.TextResponse("60")}
	svc := NewService(shopStore(), ans, 5)
	sess := session.New("s")
	selectOrders(t, svc, sess)

	entry, err := svc.Ask(context.Background(), sess, "  what is the total amount  ")
	require.NoError(t, err)

	assert.Equal(t, "what is the total amount", entry.UserMessage)
	assert.Equal(t, "what is the total amount", ans.question)
	assert.Equal(t, domain.TextResponse("60"), entry.Response)
	assert.Equal(t, 2, sess.Transcript().Len())
}

func TestAskEngineErrorBecomesEntry(t *testing.T) {
	ans := &fakeAnswerer{err: fmt.Errorf("%w: reasoning service timed out", shared.ErrQuery)}
	svc := NewService(shopStore(), ans, 5)
	sess := session.New("s")
	selectOrders(t, svc, sess)

	entry, err := svc.Ask(context.Background(), sess, "total?")
	require.NoError(t, err)
	assert.True(t, entry.Response.Failed)
	assert.Contains(t, entry.Response.Text, "timed out")

	ans.err, ans.resp = nil, domain.TextResponse("60")
	entry, err = svc.Ask(context.Background(), sess, "total?")
	require.NoError(t, err)
	assert.False(t, entry.Response.Failed)
	assert.Equal(t, 3, sess.Transcript().Len())
}

func TestAskValidation(t *testing.T) {
	svc := NewService(shopStore(), &fakeAnswerer{}, 5)
	sess := session.New("s")

	_, err := svc.Ask(context.Background(), sess, "   ")
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = svc.Ask(context.Background(), sess, "total?")
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = svc.Ask(context.Background(), sess, strings.Repeat("x", 4001))
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	assert.Equal(t, 1, sess.Transcript().Len())
}

func TestAskSerializesPerSession(t *testing.T) {
	ans := &fakeAnswerer{resp: domain.TextResponse("ok"), delay: 10 * time.Millisecond}
	svc := NewService(shopStore(), ans, 5)
	sess := session.New("s")
	selectOrders(t, svc, sess)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ask(context.Background(), sess, "q")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ans.maxSeen)
	assert.Equal(t, 6, sess.Transcript().Len())
}

type planReasoner struct{ reply string }

func (p planReasoner) Complete(context.Context, []query.Message, ...query.Option) (string, error) {
	return p.reply, nil
}

func (planReasoner) Name() string { return "plan" }

func TestShopOrdersTotalAmount(t *testing.T) {
	engine := query.NewEngine(
		planReasoner{reply: `{"type":"scalar","sql":"SELECT SUM(amount) FROM dataset"}`},
		query.NewChartRenderer(t.TempDir()),
		config.ReasoningConfig{Model: "llama3-70b-8192", Temperature: 0.6, Timeout: time.Second},
	)
	svc := NewService(shopStore(), engine, 5)
	sess := session.New("s")
	selectOrders(t, svc, sess)

	entry, err := svc.Ask(context.Background(), sess, "what is the total amount")
	require.NoError(t, err)

	assert.Equal(t, domain.ResponseText, entry.Response.Kind)
	assert.Equal(t, "60", entry.Response.Text)
}
