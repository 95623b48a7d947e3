package integration_test

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bumpgo"
)

// allocator is the operation set shared by the single-owner arena, the
// shared arena, and local proxies.
type allocator interface {
	Allocate(size, align int) ([]byte, error)
	AllocateZeroed(size, align int) ([]byte, error)
	Resize(p []byte, newSize, align int) ([]byte, error)
	Deallocate(p []byte)
	Reset(keepLast bool)
	Owns(p []byte) bool
	Stats() bumpgo.Stats
	Close() error
}

func TestAllocatorContract(t *testing.T) {
	backings := []struct {
		name string
		opt  func(t *testing.T) bumpgo.Option
	}{
		{
			name: "Heap",
			opt: func(t *testing.T) bumpgo.Option {
				return bumpgo.WithBacking(bumpgo.HeapBacking())
			},
		},
		{
			name: "Mmap",
			opt: func(t *testing.T) bumpgo.Option {
				backing, err := bumpgo.MmapBacking()
				if err != nil {
					t.Skipf("mmap unsupported: %v", err)
				}
				return bumpgo.WithBacking(backing)
			},
		},
	}

	variants := []struct {
		name    string
		factory func(opt bumpgo.Option) (allocator, func())
	}{
		{
			name: "Arena",
			factory: func(opt bumpgo.Option) (allocator, func()) {
				a := bumpgo.New(opt)
				return a, func() { a.Close() }
			},
		},
		{
			name: "SharedArena",
			factory: func(opt bumpgo.Option) (allocator, func()) {
				s := bumpgo.NewShared(opt)
				return s, func() { s.Close() }
			},
		},
		{
			name: "LocalProxy",
			factory: func(opt bumpgo.Option) (allocator, func()) {
				s := bumpgo.NewShared(opt)
				local := s.Local()
				return local, func() {
					local.Close()
					s.Close()
				}
			},
		},
	}

	for _, bk := range backings {
		t.Run(bk.name, func(t *testing.T) {
			for _, v := range variants {
				t.Run(v.name, func(t *testing.T) {
					a, teardown := v.factory(bk.opt(t))
					defer teardown()

					t.Run("AlignmentAndContent", func(t *testing.T) {
						type slot struct {
							p     []byte
							fill  byte
							align int
						}
						var slots []slot
						for i, align := range []int{1, 2, 4, 8, 16, 32, 64} {
							for _, size := range []int{1, 7, 32, 129} {
								p, err := a.Allocate(size, align)
								require.NoError(t, err)
								require.Len(t, p, size)
								addr := uintptr(unsafe.Pointer(&p[0]))
								require.Zero(t, addr%uintptr(align))
								fill := byte(i + 1)
								for j := range p {
									p[j] = fill
								}
								slots = append(slots, slot{p: p, fill: fill, align: align})
							}
						}
						for _, s := range slots {
							for _, b := range s.p {
								require.Equal(t, s.fill, b)
							}
							require.True(t, a.Owns(s.p))
						}
					})

					t.Run("ZeroedAfterReuse", func(t *testing.T) {
						p, err := a.Allocate(64, 8)
						require.NoError(t, err)
						for i := range p {
							p[i] = 0xFF
						}
						a.Deallocate(p)
						q, err := a.AllocateZeroed(64, 8)
						require.NoError(t, err)
						assert.Equal(t, make([]byte, 64), q)
					})

					t.Run("ResizePreservesPrefix", func(t *testing.T) {
						p, err := a.Allocate(24, 8)
						require.NoError(t, err)
						for i := range p {
							p[i] = byte(i)
						}
						q, err := a.Resize(p, 96, 8)
						require.NoError(t, err)
						for i := 0; i < 24; i++ {
							require.Equal(t, byte(i), q[i])
						}
						q, err = a.Resize(q, 8, 8)
						require.NoError(t, err)
						require.Len(t, q, 8)
						for i := 0; i < 8; i++ {
							require.Equal(t, byte(i), q[i])
						}
					})

					t.Run("ResetCycles", func(t *testing.T) {
						for cycle := 0; cycle < 5; cycle++ {
							for i := 0; i < 20; i++ {
								_, err := a.Allocate(128, 8)
								require.NoError(t, err)
							}
							a.Reset(true)
							assert.LessOrEqual(t, a.Stats().Chunks, 2)
						}
						a.Reset(false)
					})
				})
			}
		})
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	for _, keep := range []bool{true, false} {
		t.Run(fmt.Sprintf("keepLast=%v", keep), func(t *testing.T) {
			s := bumpgo.NewShared()
			for i := 0; i < 8; i++ {
				_, err := s.Allocate(2048, 8)
				require.NoError(t, err)
			}
			s.Reset(keep)
			require.NoError(t, s.Close())
			assert.Zero(t, s.Stats().Chunks)
			assert.Zero(t, s.Stats().Reserved)
		})
	}
}
