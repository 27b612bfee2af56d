package crypto

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/opensyncd/syncd/internal/syncerr"
)

// CryptStream is an incremental encryptor or decryptor. It accepts
// plaintext/ciphertext in arbitrarily sized chunks via Write, and yields
// output via Read. The C++ original signals end-of-input with a
// zero-length write; Go substitutes an explicit Finish call, which is the
// idiomatic shape for a push-based writer and is the Open Question
// resolution recorded in DESIGN.md.
type CryptStream struct {
	engine  *Engine
	encrypt bool

	block cipher.Block

	iv      []byte
	haveIV  bool
	pending []byte // buffered, not-yet-processed input

	plain bytes.Buffer // accumulated plaintext (both directions use this for signing)

	out      bytes.Buffer
	finished bool
	err      error
}

// EncryptStream returns a fresh incremental encryptor bound to this
// Engine's key material.
func (e *Engine) EncryptStream() (*CryptStream, error) {
	block, err := e.block()
	if err != nil {
		return nil, err
	}
	return &CryptStream{engine: e, encrypt: true, block: block}, nil
}

// DecryptStream returns a fresh incremental decryptor bound to this
// Engine's key material.
func (e *Engine) DecryptStream() (*CryptStream, error) {
	block, err := e.block()
	if err != nil {
		return nil, err
	}
	return &CryptStream{engine: e, encrypt: false, block: block}, nil
}

// Write feeds a chunk of input (plaintext for an encryptor, ciphertext
// concatenated with its trailing signature for a decryptor) into the
// stream. Writing after Finish returns an error.
func (cs *CryptStream) Write(p []byte) (int, error) {
	if cs.finished {
		return 0, syncerr.NewCryptoError("write after finish")
	}
	if cs.encrypt {
		return cs.writeEncrypt(p)
	}
	return cs.writeDecrypt(p)
}

func (cs *CryptStream) writeEncrypt(p []byte) (int, error) {
	if !cs.haveIV {
		cs.iv = make([]byte, BlockSize)
		if _, err := io.ReadFull(rand.Reader, cs.iv); err != nil {
			return 0, err
		}
		cs.out.Write(cs.iv)
		cs.haveIV = true
	}

	cs.plain.Write(p)
	cs.pending = append(cs.pending, p...)
	cs.flushFullBlocks()
	return len(p), nil
}

// flushFullBlocks CBC-encrypts every complete block currently buffered,
// leaving any partial tail in pending for the next Write or Finish.
func (cs *CryptStream) flushFullBlocks() {
	full := (len(cs.pending) / BlockSize) * BlockSize
	if full == 0 {
		return
	}
	mode := cipher.NewCBCEncrypter(cs.block, cs.iv)
	dst := make([]byte, full)
	mode.CryptBlocks(dst, cs.pending[:full])
	cs.out.Write(dst)
	cs.iv = dst[full-BlockSize:]
	cs.pending = cs.pending[full:]
}

// writeDecrypt buffers raw input. The split between ciphertext body and
// trailing signature is only known once Finish is called, so decryption
// of CBC blocks is deferred to Finish rather than streamed eagerly.
func (cs *CryptStream) writeDecrypt(p []byte) (int, error) {
	cs.pending = append(cs.pending, p...)
	return len(p), nil
}

// Finish signals end-of-input. The encryptor emits the final padded block
// followed by the trailing signature. The decryptor verifies padding and
// the trailing signature against the digest of the plaintext it produced,
// returning a *syncerr.CryptoError on any mismatch.
func (cs *CryptStream) Finish() error {
	if cs.finished {
		return cs.err
	}
	cs.finished = true

	if cs.encrypt {
		cs.finishEncrypt()
		return nil
	}
	return cs.finishDecrypt()
}

func (cs *CryptStream) finishEncrypt() {
	if !cs.haveIV {
		cs.iv = make([]byte, BlockSize)
		_, _ = io.ReadFull(rand.Reader, cs.iv)
		cs.out.Write(cs.iv)
	}

	padded := pad(cs.pending)
	mode := cipher.NewCBCEncrypter(cs.block, cs.iv)
	dst := make([]byte, len(padded))
	mode.CryptBlocks(dst, padded)
	cs.out.Write(dst)
	cs.pending = nil

	cs.out.Write(cs.engine.Sign(cs.plain.Bytes()))
}

func (cs *CryptStream) finishDecrypt() error {
	if len(cs.pending) < minCipherLen+HashSize {
		cs.err = syncerr.NewCryptoError("malformed ciphertext: too short")
		return cs.err
	}

	sig := cs.pending[len(cs.pending)-HashSize:]
	body := cs.pending[:len(cs.pending)-HashSize]
	cs.pending = nil

	if len(body)%BlockSize != 0 || len(body) < minCipherLen {
		cs.err = syncerr.NewCryptoError("malformed ciphertext: not block aligned")
		return cs.err
	}

	iv := body[:BlockSize]
	encBody := body[BlockSize:]
	mode := cipher.NewCBCDecrypter(cs.block, iv)
	dst := make([]byte, len(encBody))
	mode.CryptBlocks(dst, encBody)

	plain, err := unpad(dst)
	if err != nil {
		cs.err = err
		return err
	}

	if !Equal(sig, cs.engine.Sign(plain)) {
		cs.err = syncerr.NewCryptoError("signature mismatch")
		return cs.err
	}

	cs.plain.Write(plain)
	cs.out.Write(plain)
	return nil
}

// Read drains up to len(p) bytes of produced output, returning io.EOF once
// all output has been read following a successful Finish.
func (cs *CryptStream) Read(p []byte) (int, error) {
	if cs.out.Len() == 0 {
		if cs.finished {
			if cs.err != nil {
				return 0, cs.err
			}
			return 0, io.EOF
		}
		return 0, nil
	}
	return cs.out.Read(p)
}
