package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/mural-social/apiserver/internal/store"
	"github.com/mural-social/apiserver/types"
)

// memAccounts is an in-memory AccountRepository with the same version
// semantics as the SQL implementation.
type memAccounts struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]types.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{nextID: 1, byID: make(map[int]types.Account)}
}

func (m *memAccounts) GetByID(_ context.Context, id int) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byID[id]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.byID {
		if account.Email == email {
			return account, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

func (m *memAccounts) EmailTaken(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.byID {
		if account.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) NicknameTaken(_ context.Context, nickname string, excludeID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, account := range m.byID {
		if account.ID != excludeID && strings.EqualFold(account.Name.Nickname, nickname) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAccounts) Create(_ context.Context, account types.Account) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == account.Email {
			return types.Account{}, store.ErrDuplicateEmail
		}
		if strings.EqualFold(existing.Name.Nickname, account.Name.Nickname) {
			return types.Account{}, store.ErrDuplicateNickname
		}
	}
	account.ID = m.nextID
	account.Version = 1
	m.nextID++
	m.byID[account.ID] = account
	return account, nil
}

func (m *memAccounts) Update(_ context.Context, account types.Account) (types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[account.ID]
	if !ok {
		return types.Account{}, store.ErrNotFound
	}
	if stored.Version != account.Version {
		return types.Account{}, store.ErrVersionConflict
	}
	account.Version++
	m.byID[account.ID] = account
	return account, nil
}

func (m *memAccounts) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// bumpVersion simulates a concurrent writer between a read and the
// following update.
func (m *memAccounts) bumpVersion(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := m.byID[id]
	account.Version++
	m.byID[id] = account
}

type memPosts struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]types.Post
}

func newMemPosts() *memPosts {
	return &memPosts{nextID: 1, byID: make(map[int64]types.Post)}
}

func (m *memPosts) add(authorID int, body string) types.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	post := types.Post{ID: m.nextID, AuthorID: authorID, Body: body}
	m.nextID++
	m.byID[post.ID] = post
	return post
}

func (m *memPosts) ListByAuthor(_ context.Context, authorID int) ([]types.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var posts []types.Post
	for _, post := range m.byID {
		if post.AuthorID == authorID {
			posts = append(posts, post)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (m *memPosts) IDsByAuthor(ctx context.Context, authorID int) ([]int64, error) {
	posts, err := m.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}
	return ids, nil
}

type followEdge struct {
	accountID int
	targetID  int
}

type memFollows struct {
	mu    sync.Mutex
	edges map[followEdge]struct{}
}

func newMemFollows() *memFollows {
	return &memFollows{edges: make(map[followEdge]struct{})}
}

func (m *memFollows) Add(_ context.Context, accountID, targetID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	edge := followEdge{accountID: accountID, targetID: targetID}
	if _, ok := m.edges[edge]; ok {
		return store.ErrAlreadyFollowing
	}
	m.edges[edge] = struct{}{}
	return nil
}

func (m *memFollows) Remove(_ context.Context, accountID, targetID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.edges, followEdge{accountID: accountID, targetID: targetID})
	return nil
}

func (m *memFollows) RemoveTarget(_ context.Context, targetID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for edge := range m.edges {
		if edge.targetID == targetID {
			delete(m.edges, edge)
		}
	}
	return nil
}

func (m *memFollows) List(_ context.Context, accountID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var targets []int
	for edge := range m.edges {
		if edge.accountID == accountID {
			targets = append(targets, edge.targetID)
		}
	}
	sort.Ints(targets)
	return targets, nil
}

func (m *memFollows) Count(_ context.Context, accountID int) (int, error) {
	targets, _ := m.List(context.Background(), accountID)
	return len(targets), nil
}

// recordingJanitor captures cleanup submissions for assertions.
type recordingJanitor struct {
	mu            sync.Mutex
	deletedBlobs  []string
	deletedPosts  []int64
	prunedTargets []int
}

func (j *recordingJanitor) DeleteBlobs(_ context.Context, keys ...string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.deletedBlobs = append(j.deletedBlobs, keys...)
}

func (j *recordingJanitor) DeletePosts(_ context.Context, ids ...int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.deletedPosts = append(j.deletedPosts, ids...)
}

func (j *recordingJanitor) PruneFollowers(_ context.Context, targetID int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.prunedTargets = append(j.prunedTargets, targetID)
}

// recordingNotifier captures recovery-token sends and can be forced to
// fail.
type recordingNotifier struct {
	mu        sync.Mutex
	addresses []string
	tokens    []string
	failWith  error
}

func (n *recordingNotifier) SendRecoveryToken(_ context.Context, address, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.addresses = append(n.addresses, address)
	n.tokens = append(n.tokens, token)
	return nil
}

// memBlobs is an in-memory object-storage backend.
type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (m *memBlobs) EnsureBucket(context.Context) error { return nil }

func (m *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBlobs) Bucket() string { return "test-bucket" }

func (m *memBlobs) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
