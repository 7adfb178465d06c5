package password

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithmID = "argon2id"

// ErrMalformedHash wraps every PHC decoding failure.
var ErrMalformedHash = errors.New("malformed argon2id hash")

var b64 = base64.StdEncoding

// phcHash is one decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type phcHash struct {
	memory      uint32
	passes      uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h phcHash) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "$%s$v=%d$m=%d,t=%d,p=%d$", algorithmID, argon2.Version, h.memory, h.passes, h.parallelism)
	sb.WriteString(b64.EncodeToString(h.salt))
	sb.WriteByte('$')
	sb.WriteString(b64.EncodeToString(h.key))
	return sb.String()
}

// derive recomputes the key for password under h's parameters.
func (h phcHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.passes, h.memory, h.parallelism, uint32(len(h.key)))
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, fmt.Sprintf(format, args...))
}

func decodePHC(encoded string) (phcHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return phcHash{}, malformed("expected 5 fields")
	}
	if fields[1] != algorithmID {
		return phcHash{}, malformed("algorithm %q", fields[1])
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return phcHash{}, malformed("version field")
	}
	if version != argon2.Version {
		return phcHash{}, malformed("version %d", version)
	}

	var h phcHash
	if err := decodeParams(fields[3], &h); err != nil {
		return phcHash{}, err
	}

	var err error
	if h.salt, err = b64.DecodeString(fields[4]); err != nil || len(h.salt) < int(minSaltLength) {
		return phcHash{}, malformed("salt")
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return phcHash{}, malformed("key")
	}
	return h, nil
}

// decodeParams reads "m=..,t=..,p=.." strictly in that order.
func decodeParams(field string, h *phcHash) error {
	var (
		memory, passes uint32
		parallelism    uint8
		rest           string
	)
	n, _ := fmt.Sscanf(field+",end", "m=%d,t=%d,p=%d,%s", &memory, &passes, &parallelism, &rest)
	if n != 4 || rest != "end" {
		return malformed("parameters %q", field)
	}
	switch {
	case memory < minMemoryKB:
		return malformed("memory %d", memory)
	case passes < minTimeCost:
		return malformed("time %d", passes)
	case parallelism < minParallelism:
		return malformed("parallelism %d", parallelism)
	}
	h.memory, h.passes, h.parallelism = memory, passes, parallelism
	return nil
}
