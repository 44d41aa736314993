package xmlbind

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/blake2b"
)

const compiledVersion = 1

// compiledEnvelope frames a MessagePack-encoded Mapping with a checksum.
type compiledEnvelope struct {
	Version  int    `msgpack:"v"`
	Checksum []byte `msgpack:"sum"`
	Payload  []byte `msgpack:"payload"`
}

// WriteCompiled writes m as a compiled mapping document (FormatCompiled).
func (m *Mapping) WriteCompiled(w io.Writer) error {
	payload, err := msgpack.Marshal(m)
	if err != nil {
		return newError(KindMapping, "", err, "cannot encode mapping")
	}
	sum := blake2b.Sum256(payload)
	env := compiledEnvelope{
		Version:  compiledVersion,
		Checksum: sum[:],
		Payload:  payload,
	}
	if err := msgpack.NewEncoder(w).Encode(&env); err != nil {
		return newError(KindIO, "", err, "cannot write compiled mapping")
	}
	return nil
}

func readCompiled(r io.Reader, into *Mapping) error {
	var env compiledEnvelope
	if err := msgpack.NewDecoder(r).Decode(&env); err != nil {
		return err
	}
	if env.Version != compiledVersion {
		return fmt.Errorf("unsupported compiled mapping version %d", env.Version)
	}
	sum := blake2b.Sum256(env.Payload)
	if !bytes.Equal(sum[:], env.Checksum) {
		return errors.New("compiled mapping checksum mismatch")
	}
	return msgpack.Unmarshal(env.Payload, into)
}
