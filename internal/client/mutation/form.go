package mutation

import "sync"

// Form is the client-side state of one input dialog: whether it is open
// and the values typed so far.
type Form[T any] struct {
	mu       sync.Mutex
	open     bool
	draft    T
	defaults T
}

func NewForm[T any](defaults T) *Form[T] {
	return &Form[T]{draft: defaults, defaults: defaults}
}

func (f *Form[T]) Open() {
	f.mu.Lock()
	f.open = true
	f.mu.Unlock()
}

func (f *Form[T]) Close() {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
}

func (f *Form[T]) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *Form[T]) Draft() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Form[T]) Set(draft T) {
	f.mu.Lock()
	f.draft = draft
	f.mu.Unlock()
}

func (f *Form[T]) Update(fn func(*T)) {
	f.mu.Lock()
	fn(&f.draft)
	f.mu.Unlock()
}

// Reset restores the default field values.
func (f *Form[T]) Reset() {
	f.mu.Lock()
	f.draft = f.defaults
	f.mu.Unlock()
}
