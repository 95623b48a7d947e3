package mem

import (
	"testing"
	"unsafe"
)

func TestAllocAligned(t *testing.T) {
	t.Run("alignment", func(t *testing.T) {
		for _, size := range []int{1, 7, 64, 100, 4096} {
			buf := AllocAligned(size)
			if len(buf) != size {
				t.Fatalf("size %d: got len %d", size, len(buf))
			}
			addr := uintptr(unsafe.Pointer(&buf[0]))
			if addr%Alignment != 0 {
				t.Errorf("size %d: address %#x not %d-byte aligned", size, addr, Alignment)
			}
		}
	})

	t.Run("zero size", func(t *testing.T) {
		if buf := AllocAligned(0); buf != nil {
			t.Errorf("expected nil for zero size, got len %d", len(buf))
		}
	})

	t.Run("writable", func(t *testing.T) {
		buf := AllocAligned(128)
		for i := range buf {
			buf[i] = byte(i)
		}
		for i := range buf {
			if buf[i] != byte(i) {
				t.Fatalf("byte %d: got %d", i, buf[i])
			}
		}
	})
}

func TestAllocAlignedTo(t *testing.T) {
	for _, align := range []int{8, 16, 64, 256, 4096} {
		buf := AllocAlignedTo(100, align)
		if len(buf) != 100 {
			t.Fatalf("align %d: got len %d", align, len(buf))
		}
		addr := uintptr(unsafe.Pointer(&buf[0]))
		if addr%uintptr(align) != 0 {
			t.Errorf("align %d: address %#x not aligned", align, addr)
		}
	}
}
