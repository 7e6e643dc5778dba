package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/tjfontaine/hvac-ai-gateway/internal/config"
	"github.com/tjfontaine/hvac-ai-gateway/internal/domain"
	"github.com/tjfontaine/hvac-ai-gateway/internal/provider"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// callLog records adapter calls across fakes in the order they happen.
type callLog struct {
	mu    sync.Mutex
	names []domain.ProviderName
}

func (l *callLog) add(name domain.ProviderName) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *callLog) get() []domain.ProviderName {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ProviderName(nil), l.names...)
}

type fakeAdapter struct {
	*provider.Base
	log *callLog

	mu        sync.Mutex
	initErr   error
	initDelay time.Duration
	probeErr  error
	reply     string
	genErr    error
	contexts  []domain.RequestContext
	inputs    []domain.HVACInput
	calls     int
}

var _ provider.Adapter = (*fakeAdapter)(nil)

func newFake(name domain.ProviderName, log *callLog) *fakeAdapter {
	return &fakeAdapter{
		Base: provider.NewBase(config.ProviderConfig{
			Name:    name,
			Model:   string(name) + "-model",
			BaseURL: "http://" + string(name) + ".test",
		}, discard),
		log:   log,
		reply: "reply from " + string(name),
	}
}

// up returns a fake that is already available.
func up(name domain.ProviderName, log *callLog) *fakeAdapter {
	f := newFake(name, log)
	f.SetAvailable(true)
	return f
}

// failing returns an available fake whose upstream always errors.
func failing(name domain.ProviderName, log *callLog) *fakeAdapter {
	f := up(name, log)
	f.genErr = errors.New(string(name) + " returned 500")
	return f
}

func (f *fakeAdapter) Initialize(ctx context.Context) (bool, error) {
	if f.initDelay > 0 {
		time.Sleep(f.initDelay)
	}
	return f.Settle(f.initErr)
}

func (f *fakeAdapter) Probe(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probeErr
}

func (f *fakeAdapter) setProbeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeErr = err
}

func (f *fakeAdapter) Generate(ctx context.Context, prompt string, rc domain.RequestContext) (string, error) {
	if err := f.CheckReady(prompt); err != nil {
		return "", err
	}
	if f.log != nil {
		f.log.add(f.Name())
	}

	f.mu.Lock()
	f.calls++
	f.contexts = append(f.contexts, maps.Clone(rc))
	f.mu.Unlock()

	if f.genErr != nil {
		return "", domain.ErrUpstream(f.Name(), f.genErr)
	}
	return f.reply, nil
}

func (f *fakeAdapter) AnalyzeHVAC(ctx context.Context, input domain.HVACInput) (domain.Analysis, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, input.Clone())
	f.mu.Unlock()
	return provider.AnalyzeHVAC(ctx, f, input)
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func adapters(fakes ...*fakeAdapter) []provider.Adapter {
	out := make([]provider.Adapter, len(fakes))
	for i, f := range fakes {
		out[i] = f
	}
	return out
}

// fourUp builds a registry with all four available and local as primary.
func fourUp(log *callLog) (*Manager, map[domain.ProviderName]*fakeAdapter) {
	fakes := map[domain.ProviderName]*fakeAdapter{}
	var list []*fakeAdapter
	for _, name := range domain.ProviderOrder {
		f := newFake(name, log)
		fakes[name] = f
		list = append(list, f)
	}
	m := NewManager(adapters(list...), WithLogger(discard))
	m.InitializeAll(context.Background())
	return m, fakes
}
