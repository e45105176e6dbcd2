// This file is part of GopherBoy.
//
// GopherBoy is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GopherBoy is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GopherBoy.  If not, see <https://www.gnu.org/licenses/>.

package cartridgeloader_test

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/jetsetilly/gopherboy/cartridgeloader"
	"github.com/jetsetilly/gopherboy/test"
)

var image = []byte("not really a cartridge but it will do")

func write(t *testing.T, name string, data []byte) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), name)
	test.DemandSuccess(t, os.WriteFile(fn, data, 0o644))
	return fn
}

func TestLoadFile(t *testing.T) {
	cl := cartridgeloader.NewLoader(write(t, "test.gb", image))
	test.ExpectFailure(t, cl.HasLoaded())
	test.DemandSuccess(t, cl.Load())
	test.ExpectSuccess(t, cl.HasLoaded())
	test.ExpectSuccess(t, bytes.Equal(cl.Data, image))
	test.ExpectEquality(t, cl.Hash, fmt.Sprintf("%x", sha1.Sum(image)))
	test.ExpectEquality(t, cl.ShortName(), "test")
}

func TestLoadGzip(t *testing.T) {
	b := &bytes.Buffer{}
	w := gzip.NewWriter(b)
	_, err := w.Write(image)
	test.DemandSuccess(t, err)
	test.DemandSuccess(t, w.Close())

	cl := cartridgeloader.NewLoader(write(t, "test.gba.gz", b.Bytes()))
	test.DemandSuccess(t, cl.Load())
	test.ExpectSuccess(t, bytes.Equal(cl.Data, image))
	test.ExpectEquality(t, cl.ShortName(), "test")
}

func zipArchive(t *testing.T, files map[string][]byte, order ...string) []byte {
	t.Helper()
	b := &bytes.Buffer{}
	w := zip.NewWriter(b)
	for _, n := range order {
		f, err := w.Create(n)
		test.DemandSuccess(t, err)
		_, err = f.Write(files[n])
		test.DemandSuccess(t, err)
	}
	test.DemandSuccess(t, w.Close())
	return b.Bytes()
}

func TestLoadZip(t *testing.T) {
	files := map[string][]byte{
		"readme.txt": []byte("hello"),
		"game.GBC":   image,
	}
	cl := cartridgeloader.NewLoader(write(t, "test.zip", zipArchive(t, files, "readme.txt", "game.GBC")))
	test.DemandSuccess(t, cl.Load())
	test.ExpectSuccess(t, bytes.Equal(cl.Data, image))

	files = map[string][]byte{
		"readme.txt": []byte("hello"),
	}
	cl = cartridgeloader.NewLoader(write(t, "test.zip", zipArchive(t, files, "readme.txt")))
	test.ExpectFailure(t, cl.Load())
	test.ExpectFailure(t, cl.HasLoaded())
}

func TestLoadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/test.gb" {
			http.NotFound(w, r)
			return
		}
		w.Write(image)
	}))
	defer srv.Close()

	cl := cartridgeloader.NewLoader(srv.URL + "/test.gb")
	test.DemandSuccess(t, cl.Load())
	test.ExpectSuccess(t, bytes.Equal(cl.Data, image))

	cl = cartridgeloader.NewLoader(srv.URL + "/missing.gb")
	test.ExpectFailure(t, cl.Load())
}

func TestLoadErrors(t *testing.T) {
	cl := cartridgeloader.NewLoader(filepath.Join(t.TempDir(), "missing.gb"))
	test.ExpectFailure(t, cl.Load())

	cl = cartridgeloader.NewLoader("ftp://example.com/test.gb")
	test.ExpectFailure(t, cl.Load())

	cl = cartridgeloader.NewLoader(write(t, "empty.gb", []byte{}))
	test.ExpectFailure(t, cl.Load())

	cl = cartridgeloader.NewLoader(write(t, "test.gb", image))
	cl.Hash = "0000"
	test.ExpectFailure(t, cl.Load())
	test.ExpectFailure(t, cl.HasLoaded())

	cl = cartridgeloader.NewLoader(write(t, "test.gb.gz", image))
	test.ExpectFailure(t, cl.Load())
}
