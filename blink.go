package bumpgo

import (
	"context"
	"iter"
	"math"
	"reflect"
	"sync"
	"unsafe"

	"github.com/hupe1980/bumpgo/internal/bump"
	"github.com/hupe1980/bumpgo/internal/conv"
)

// Finalizer is implemented by values that need cleanup when the Blink that
// placed them resets.
type Finalizer interface {
	Finalize()
}

// Blink is the typed, destruction-aware layer over an Arena. Put and Make
// place plain values; PutFinal and CollectFinal co-locate a destruction
// record with the value so Reset can finalize what the arena never
// individually frees; Defer queues arbitrary cleanup in the same
// newest-first order. Blink is single-owner, like the arena it wraps.
type Blink struct {
	arena  *Arena
	drops  bump.DropList
	defers []func()
}

// NewBlink creates a Blink over a fresh arena.
func NewBlink(optFns ...Option) *Blink {
	return &Blink{arena: New(optFns...)}
}

// NewBlinkFrom wraps an existing arena, taking ownership: Reset and Close
// propagate to it. Combine with SharedArena.Local for per-worker Blinks
// over one shared arena.
func NewBlinkFrom(a *Arena) *Blink {
	return &Blink{arena: a}
}

// Arena exposes the wrapped arena for raw byte allocation.
func (b *Blink) Arena() *Arena { return b.arena }

// Stats returns the wrapped arena's snapshot.
func (b *Blink) Stats() Stats { return b.arena.Stats() }

// Defer queues fn to run at the next Reset or Close, interleaved in
// newest-first order with PutFinal registrations. The closure stays on the
// Go heap; only a small index record rides in the arena.
func (b *Blink) Defer(fn func()) error {
	if fn == nil {
		return nil
	}
	idx, err := conv.IntToUint32(len(b.defers))
	if err != nil {
		return err
	}

	p, h, err := b.arena.allocWithHandle(int(bump.DropRecordSize)+4, 4)
	if err != nil {
		return err
	}
	if h.IsZero() {
		return allocError(int(bump.DropRecordSize)+4, 4, ErrSizeOverflow)
	}

	rec := (*bump.DropRecord)(unsafe.Pointer(&p[0]))
	rec.Fn = deferFnID
	rec.Count = 1
	*(*uint32)(unsafe.Add(unsafe.Pointer(&p[0]), deferPayloadOff)) = idx
	rec.Next = b.drops.Push(h)

	b.defers = append(b.defers, fn)
	return nil
}

// Reset runs every registered finalizer and deferred cleanup exactly once,
// newest first, then resets the arena. keepLast retains the warm chunk.
// Pointers obtained from this Blink become invalid.
func (b *Blink) Reset(keepLast bool) {
	if b.arena.closed {
		return
	}
	n := b.finalizeDrops()
	b.arena.opts.logger.LogFinalize(context.Background(), n)
	b.arena.Reset(keepLast)
}

// Close finalizes everything and releases the arena. Safe to call
// repeatedly.
func (b *Blink) Close() error {
	if b == nil || b.arena == nil || b.arena.closed {
		return nil
	}
	n := b.finalizeDrops()
	b.arena.opts.logger.LogFinalize(context.Background(), n)
	return b.arena.Close()
}

// finalizeDrops walks the record list while the chunks are still live.
func (b *Blink) finalizeDrops() int {
	n := b.arena.eng.FinalizeDrops(&b.drops, func(fn uint32, rec unsafe.Pointer, count int) {
		if fn == deferFnID {
			idx := *(*uint32)(unsafe.Add(rec, deferPayloadOff))
			if f := b.defers[idx]; f != nil {
				b.defers[idx] = nil
				f()
			}
			return
		}
		dropRegistry.RLock()
		df := dropRegistry.funcs[fn]
		dropRegistry.RUnlock()
		if df != nil {
			df(rec, count)
		}
	})
	b.defers = b.defers[:0]
	return n
}

// Put places v in arena memory and returns a pointer valid until the next
// reset. T must be free of Go pointers: the collector does not scan arena
// bytes, so a pointer stored there would not keep its referent alive.
// PutFinal is the variant for values needing cleanup; Defer covers
// everything else.
func Put[T any](b *Blink, v T) (*T, error) {
	p, err := emplace[T](b, 1)
	if err != nil {
		return nil, err
	}
	*p = v
	return p, nil
}

// Make returns a pointer to a zero T in arena memory, under the same
// pointer-free rule as Put.
func Make[T any](b *Blink) (*T, error) {
	p, err := emplace[T](b, 1)
	if err != nil {
		return nil, err
	}
	var zero T
	*p = zero
	return p, nil
}

// MakeSlice returns an arena-backed slice of n zero values of T.
func MakeSlice[T any](b *Blink, n int) ([]T, error) {
	p, err := emplace[T](b, n)
	if err != nil || n == 0 {
		return nil, err
	}
	s := unsafe.Slice(p, n)
	var zero T
	for i := range s {
		s[i] = zero
	}
	return s, nil
}

// CopySlice places a copy of src in arena memory.
func CopySlice[T any](b *Blink, src []T) ([]T, error) {
	p, err := emplace[T](b, len(src))
	if err != nil || len(src) == 0 {
		return nil, err
	}
	s := unsafe.Slice(p, len(src))
	copy(s, src)
	return s, nil
}

// PutFinal places v and registers v.Finalize to run at the next reset. The
// destruction record rides in the same allocation, so registration costs no
// extra arena traffic. The type parameter list lets pointer-receiver
// finalizers infer naturally: PutFinal[Conn](b, c).
func PutFinal[T any, PT interface {
	*T
	Finalizer
}](b *Blink, v T) (*T, error) {
	vals, rec, err := emplaceRecorded[T, PT](b, 1)
	if err != nil {
		return nil, err
	}
	vals[0] = v
	rec.Count = 1
	return &vals[0], nil
}

// Collect drains seq into a contiguous arena-backed slice. Growth doubles
// capacity, extending in place while the run is still the newest allocation
// and copying otherwise.
func Collect[T any](b *Blink, seq iter.Seq[T]) ([]T, error) {
	var zero T
	esize := int(unsafe.Sizeof(zero))
	if esize == 0 {
		n := 0
		for range seq {
			n++
		}
		if n == 0 {
			return nil, nil
		}
		return unsafe.Slice((*T)(unsafe.Pointer(&zeroSized)), n), nil
	}
	if err := checkPointerFree[T](); err != nil {
		return nil, err
	}

	align := int(unsafe.Alignof(zero))
	var (
		vals []T
		n    int
	)
	for v := range seq {
		if n == len(vals) {
			newCap := n * 2
			if newCap < collectSeedCap {
				newCap = collectSeedCap
			}
			var old []byte
			if n > 0 {
				old = unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), n*esize)
			}
			buf, err := b.arena.Resize(old, newCap*esize, align)
			if err != nil {
				return nil, err
			}
			vals = unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), newCap)
		}
		vals[n] = v
		n++
	}
	if n == 0 {
		return nil, nil
	}
	return vals[:n], nil
}

// CollectFinal drains seq into an arena-backed slice and registers a
// finalizer covering every element. The record's element count tracks the
// fill, so a reset mid-iteration (a panicking source, say) finalizes only
// initialized values. On growth the old record stays linked with a zero
// count and a fresh record takes over the copied run.
func CollectFinal[T any, PT interface {
	*T
	Finalizer
}](b *Blink, seq iter.Seq[T]) ([]T, error) {
	var (
		vals []T
		rec  *bump.DropRecord
		n    int
	)
	for v := range seq {
		if n == len(vals) {
			newCap := n * 2
			if newCap < collectSeedCap {
				newCap = collectSeedCap
			}
			if newCap > math.MaxUint32 {
				return nil, allocError(newCap, 0, ErrSizeOverflow)
			}
			nv, nrec, err := emplaceRecorded[T, PT](b, newCap)
			if err != nil {
				return nil, err
			}
			copy(nv, vals[:n])
			nrec.Count = uint32(n)
			if rec != nil {
				rec.Count = 0
			}
			vals, rec = nv, nrec
		}
		vals[n] = v
		n++
		rec.Count = uint32(n)
	}
	if n == 0 {
		return nil, nil
	}
	return vals[:n], nil
}

const (
	// deferFnID is the reserved registry id marking a deferred-closure
	// record, whose payload is an index into Blink.defers.
	deferFnID = 0

	// deferPayloadOff places the index right after the record header.
	deferPayloadOff = uintptr(bump.DropRecordSize)

	// collectSeedCap is the first capacity Collect grows to.
	collectSeedCap = 8
)

// zeroSized anchors pointers to zero-size values.
var zeroSized byte

// dropFunc finalizes the run of values behind a record.
type dropFunc func(rec unsafe.Pointer, count int)

// dropRegistry maps value types to process-stable finalizer ids. Records
// store the id, not a function pointer, to keep arena bytes scalar.
var dropRegistry = struct {
	sync.RWMutex
	ids   map[reflect.Type]uint32
	funcs []dropFunc
}{
	ids:   make(map[reflect.Type]uint32),
	funcs: []dropFunc{nil}, // deferFnID
}

// dropFnFor returns T's registry id, registering the walk on first use.
func dropFnFor[T any, PT interface {
	*T
	Finalizer
}]() uint32 {
	t := reflect.TypeFor[T]()
	dropRegistry.RLock()
	id, ok := dropRegistry.ids[t]
	dropRegistry.RUnlock()
	if ok {
		return id
	}

	dropRegistry.Lock()
	defer dropRegistry.Unlock()
	if id, ok := dropRegistry.ids[t]; ok {
		return id
	}
	id = uint32(len(dropRegistry.funcs))
	dropRegistry.funcs = append(dropRegistry.funcs, makeDropFunc[T, PT]())
	dropRegistry.ids[t] = id
	return id
}

// makeDropFunc builds the type-erased finalize walk for records governing
// runs of T. The payload begins after the record header, rounded up to T's
// alignment.
func makeDropFunc[T any, PT interface {
	*T
	Finalizer
}]() dropFunc {
	var zero T
	step := unsafe.Sizeof(zero)
	off := payloadOffset(unsafe.Alignof(zero))
	return func(rec unsafe.Pointer, count int) {
		base := unsafe.Add(rec, off)
		for i := 0; i < count; i++ {
			PT((*T)(unsafe.Add(base, uintptr(i)*step))).Finalize()
		}
	}
}

// payloadOffset returns where a record's governed values start, relative to
// the record.
func payloadOffset(align uintptr) uintptr {
	if align == 0 {
		align = 1
	}
	rec := uintptr(bump.DropRecordSize)
	return (rec + align - 1) &^ (align - 1)
}

// emplace returns a pointer to n contiguous values of T in arena memory,
// contents unspecified.
func emplace[T any](b *Blink, n int) (*T, error) {
	if err := checkPointerFree[T](); err != nil {
		return nil, err
	}
	var zero T
	esize := int(unsafe.Sizeof(zero))
	if esize == 0 || n == 0 {
		return (*T)(unsafe.Pointer(&zeroSized)), nil
	}
	if n < 0 || n > int(bump.MaxAllocSize)/esize {
		return nil, allocError(n, 0, ErrSizeOverflow)
	}

	p, err := b.arena.Allocate(n*esize, int(unsafe.Alignof(zero)))
	if err != nil {
		return nil, err
	}
	return (*T)(unsafe.Pointer(&p[0])), nil
}

// emplaceRecorded returns an n-capacity run of T preceded by its linked
// destruction record. The record starts with Count 0; callers raise it as
// elements become initialized.
func emplaceRecorded[T any, PT interface {
	*T
	Finalizer
}](b *Blink, n int) ([]T, *bump.DropRecord, error) {
	if err := checkPointerFree[T](); err != nil {
		return nil, nil, err
	}
	fn := dropFnFor[T, PT]()

	var zero T
	esize := unsafe.Sizeof(zero)
	ealign := unsafe.Alignof(zero)
	off := payloadOffset(ealign)
	if n < 0 || (esize > 0 && uintptr(n) > (uintptr(bump.MaxAllocSize)-off)/esize) {
		return nil, nil, allocError(n, 0, ErrSizeOverflow)
	}
	size := int(off + uintptr(n)*esize)

	align := int(ealign)
	if align < 4 {
		align = 4 // record fields are uint32s
	}

	p, h, err := b.arena.allocWithHandle(size, align)
	if err != nil {
		return nil, nil, err
	}
	if h.IsZero() {
		return nil, nil, allocError(size, align, ErrSizeOverflow)
	}

	rec := (*bump.DropRecord)(unsafe.Pointer(&p[0]))
	rec.Fn = fn
	rec.Count = 0
	rec.Next = b.drops.Push(h)

	base := unsafe.Add(unsafe.Pointer(&p[0]), off)
	return unsafe.Slice((*T)(base), n), rec, nil
}

// pointerFreeCache memoizes the reflect walk per type.
var pointerFreeCache sync.Map // reflect.Type -> bool

func checkPointerFree[T any]() error {
	t := reflect.TypeFor[T]()
	if v, ok := pointerFreeCache.Load(t); ok {
		if v.(bool) {
			return nil
		}
		return allocError(int(t.Size()), t.Align(), ErrPointerType)
	}
	free := !hasPointers(t)
	pointerFreeCache.Store(t, free)
	if !free {
		return allocError(int(t.Size()), t.Align(), ErrPointerType)
	}
	return nil
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// Pointers, slices, strings, maps, chans, funcs, interfaces.
		return true
	}
}
