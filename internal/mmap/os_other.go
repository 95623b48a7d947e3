//go:build !unix

package mmap

const supported = false

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	return nil, nil, ErrUnsupported
}

func osAdvise(data []byte, pattern AccessPattern) error {
	return ErrUnsupported
}
