package blob

import (
	"crypto/md5"
	"crypto/sha1"
	"golang.org/x/crypto/sha3"
	"hash"
	"io"

	sha256simd "github.com/minio/sha256-simd"
)

// Hashes is the full set of digests the blob store computes for every byte
// sequence it ingests in a single streaming pass: sha3-256 is primary (it
// names the Ref), the rest are secondary hashes carried on the Blob row.
type Hashes struct {
	Ref  Ref
	Size int64
	MD5  [md5.Size]byte
	SHA1 [sha1.Size]byte
	SHA256 [sha256simd.Size]byte
}

// Sum streams r once, feeding every hash in Hashes through a single
// io.MultiWriter (each write reaches the digests one after another, not
// concurrently). This amortizes the single read of potentially
// large files across all four digests, per the blob store's contract that
// put() is deterministic and a single streaming pass.
func Sum(r io.Reader) (Hashes, error) {
	h3 := sha3.New256()
	hMD5 := md5.New()
	hSHA1 := sha1.New()
	hSHA256 := sha256simd.New()

	mw := io.MultiWriter(h3, hMD5, hSHA1, hSHA256)
	n, err := io.Copy(mw, r)
	if err != nil {
		return Hashes{}, err
	}

	var out Hashes
	out.Size = n
	copy(out.Ref[:], h3.Sum(nil))
	copySum(out.MD5[:], hMD5)
	copySum(out.SHA1[:], hSHA1)
	copySum(out.SHA256[:], hSHA256)
	return out, nil
}

func copySum(dst []byte, h hash.Hash) {
	copy(dst, h.Sum(nil))
}
