package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/layer-3/faucet/core"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu      sync.Mutex
	signIns []string
	claims  []string
	err     error
}

func (p *recordingPublisher) PublishSignIn(_ context.Context, address, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signIns = append(p.signIns, address)
	return p.err
}

func (p *recordingPublisher) PublishClaim(_ context.Context, address, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.claims = append(p.claims, address)
	return p.err
}

// stubFaucet records claims and reports an address as claimed once its
// claim went through.
type stubFaucet struct {
	mu         sync.Mutex
	claimed    map[string]bool
	claimCalls []string

	hasClaimedErr error
	claimErr      error
	statusErr     error
	block         bool
}

func newStubFaucet() *stubFaucet {
	return &stubFaucet{claimed: make(map[string]bool)}
}

func (f *stubFaucet) HasClaimed(ctx context.Context, address string) (bool, error) {
	if f.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if f.hasClaimedErr != nil {
		return false, f.hasClaimedErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claimed[address], nil
}

func (f *stubFaucet) Claim(_ context.Context, address string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimCalls = append(f.claimCalls, address)
	if f.claimErr != nil {
		return "", f.claimErr
	}
	f.claimed[address] = true
	return "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060", nil
}

func (f *stubFaucet) Status(_ context.Context, address string) (*core.FaucetStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &core.FaucetStatus{
		HasClaimed:   f.claimed[address],
		Balance:      "1000",
		Users:        []string{},
		FaucetAmount: "100000000000000000000",
		Decimals:     18,
	}, nil
}

type failingStore struct{}

func (failingStore) Issue(context.Context, string, time.Duration) (string, error) {
	return "", errors.Join(core.ErrStoreOperationFailed, errors.New("connection refused"))
}

func (failingStore) Consume(context.Context, string, string) (bool, error) {
	return false, errors.Join(core.ErrStoreOperationFailed, errors.New("connection refused"))
}
