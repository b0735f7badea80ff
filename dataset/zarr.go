/*
Copyright © 2022 the metadata-inspector authors.
This file is part of metadata-inspector.

metadata-inspector is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

metadata-inspector is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with metadata-inspector.  If not, see <http://www.gnu.org/licenses/>.
*/

package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/google/go-cloud/blob/gcsblob"
	"github.com/google/go-cloud/blob/s3blob"
	"github.com/google/go-cloud/gcp"
)

// zarrArray is the Zarr v2 .zarray metadata.
type zarrArray struct {
	Chunks     []int           `json:"chunks"`
	Compressor json.RawMessage `json:"compressor"`
	DType      string          `json:"dtype"`
	Shape      []int           `json:"shape"`
	ZarrFormat int             `json:"zarr_format"`
}

// zarrStore fetches one metadata key from wherever the store lives.
type zarrStore interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
}

// OpenZarr describes a Zarr v2 store without reading any chunk data. The
// store may be a local directory, an http(s) URL, or an s3/gs bucket
// prefix. Consolidated metadata (.zmetadata) is preferred; a local
// directory is walked for .zarray nodes when it is absent.
func OpenZarr(ctx context.Context, store string) (*Dataset, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := newZarrStore(ctx, store)
	if err != nil {
		return nil, err
	}
	meta, err := zarrMetadata(ctx, s, store)
	if err != nil {
		return nil, err
	}
	return zarrDataset(meta)
}

// zarrNode is one array in the store: its .zarray metadata plus .zattrs.
type zarrNode struct {
	array zarrArray
	attrs map[string]interface{}
}

func zarrMetadata(ctx context.Context, s zarrStore, store string) (map[string]zarrNode, error) {
	raw, ok, err := s.get(ctx, ".zmetadata")
	if err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %v", store, err)
	}
	if ok {
		return parseConsolidated(raw)
	}
	dir, isDir := s.(*dirStore)
	if !isDir {
		return nil, fmt.Errorf("dataset: %s has no consolidated zarr metadata", store)
	}
	return walkZarrDir(dir.root)
}

func parseConsolidated(raw []byte) (map[string]zarrNode, error) {
	var doc struct {
		Metadata map[string]json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("dataset: undecodable .zmetadata: %v", err)
	}
	nodes := make(map[string]zarrNode)
	for key, msg := range doc.Metadata {
		switch {
		case strings.HasSuffix(key, "/.zarray"):
			name := strings.TrimSuffix(key, "/.zarray")
			n := nodes[name]
			if err := json.Unmarshal(msg, &n.array); err != nil {
				return nil, fmt.Errorf("dataset: undecodable .zarray for %s: %v", name, err)
			}
			nodes[name] = n
		case strings.HasSuffix(key, "/.zattrs"):
			name := strings.TrimSuffix(key, "/.zattrs")
			n := nodes[name]
			if err := json.Unmarshal(msg, &n.attrs); err != nil {
				return nil, fmt.Errorf("dataset: undecodable .zattrs for %s: %v", name, err)
			}
			nodes[name] = n
		case key == ".zattrs":
			n := nodes[""]
			if err := json.Unmarshal(msg, &n.attrs); err != nil {
				return nil, fmt.Errorf("dataset: undecodable root .zattrs: %v", err)
			}
			nodes[""] = n
		}
	}
	return nodes, nil
}

func walkZarrDir(root string) (map[string]zarrNode, error) {
	nodes := make(map[string]zarrNode)
	readAttrs := func(dir string) (map[string]interface{}, error) {
		raw, err := ioutil.ReadFile(filepath.Join(dir, ".zattrs"))
		if os.IsNotExist(err) {
			return nil, nil
		} else if err != nil {
			return nil, err
		}
		var attrs map[string]interface{}
		err = json.Unmarshal(raw, &attrs)
		return attrs, err
	}
	rootAttrs, err := readAttrs(root)
	if err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %v", root, err)
	}
	nodes[""] = zarrNode{attrs: rootAttrs}
	err = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Base(p) != ".zarray" {
			return err
		}
		dir := filepath.Dir(p)
		name, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		var n zarrNode
		raw, err := ioutil.ReadFile(p)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &n.array); err != nil {
			return fmt.Errorf("undecodable .zarray for %s: %v", name, err)
		}
		if n.attrs, err = readAttrs(dir); err != nil {
			return err
		}
		nodes[filepath.ToSlash(name)] = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %v", root, err)
	}
	return nodes, nil
}

func zarrDataset(nodes map[string]zarrNode) (*Dataset, error) {
	if len(nodes) < 2 { // only the root node, or nothing
		return nil, fmt.Errorf("dataset: not a zarr store")
	}
	d := New()
	for k, v := range nodes[""].attrs {
		d.Attrs.Set(k, v)
	}
	sortRootAttrs(d.Attrs)

	names := make([]string, 0, len(nodes))
	for name := range nodes {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var coords, vars []*Variable
	for _, name := range names {
		n := nodes[name]
		v := &Variable{
			Name:  name,
			Shape: n.array.Shape,
			DType: zarrDType(n.array.DType),
			Attrs: NewAttributes(),
		}
		for _, k := range sortedKeys(n.attrs) {
			if k == "_ARRAY_DIMENSIONS" {
				continue
			}
			v.Attrs.Set(k, n.attrs[k])
		}
		if dims, ok := n.attrs["_ARRAY_DIMENSIONS"]; ok {
			for _, dim := range toStringSlice(dims) {
				v.Dims = append(v.Dims, dim)
			}
		}
		if len(v.Dims) != len(v.Shape) {
			// No usable dimension labels; fall back to positional names.
			v.Dims = make([]string, len(v.Shape))
			for i := range v.Shape {
				v.Dims[i] = fmt.Sprintf("%s_dim_%d", name, i)
			}
		}
		if len(v.Dims) == 1 && v.Dims[0] == v.Name {
			coords = append(coords, v)
		} else {
			vars = append(vars, v)
		}
	}
	for _, c := range coords {
		if err := d.SetCoord(c); err != nil {
			return nil, err
		}
	}
	for _, v := range vars {
		if err := d.AddVar(v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// sortRootAttrs fixes the key order of attributes decoded from JSON,
// which arrive in map order.
func sortRootAttrs(a *Attributes) {
	keys := a.Keys()
	sort.Strings(keys)
	vals := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		vals[k], _ = a.Pop(k)
	}
	for _, k := range keys {
		a.Set(k, vals[k])
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toStringSlice(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, fmt.Sprintf("%v", e))
	}
	return out
}

// zarrDType decodes a numpy-style dtype string ("<f8", "|i1") to a Go
// type name. Unrecognized encodings map to the empty string, which makes
// the variable count zero bytes.
func zarrDType(dtype string) string {
	if len(dtype) < 3 {
		return ""
	}
	switch dtype[1:] {
	case "b1":
		return "bool"
	case "i1":
		return "int8"
	case "u1":
		return "uint8"
	case "i2":
		return "int16"
	case "u2":
		return "uint16"
	case "i4":
		return "int32"
	case "u4":
		return "uint32"
	case "i8":
		return "int64"
	case "u8":
		return "uint64"
	case "f4":
		return "float32"
	case "f8":
		return "float64"
	case "M8[ns]":
		return "int64"
	}
	if dtype[1] == 'U' || dtype[1] == 'S' {
		return "string"
	}
	return ""
}

func newZarrStore(ctx context.Context, store string) (zarrStore, error) {
	u, err := url.Parse(store)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s is not a valid store location: %v", store, err)
	}
	switch u.Scheme {
	case "http", "https":
		return &httpStore{base: strings.TrimSuffix(store, "/")}, nil
	case "file":
		bucket, err := openBucket(ctx, u)
		if err != nil {
			return nil, err
		}
		return &blobStore{bucket: bucket}, nil
	case "s3", "gs", "gcs":
		bucket, err := openBucket(ctx, u)
		if err != nil {
			return nil, err
		}
		return &blobStore{bucket: bucket, prefix: strings.TrimPrefix(u.Path, "/")}, nil
	}
	return &dirStore{root: store}, nil
}

type dirStore struct{ root string }

func (s *dirStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := ioutil.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	return b, err == nil, err
}

type httpStore struct{ base string }

func (s *httpStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	req, err := http.NewRequest("GET", s.base+"/"+key, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("fetching %s/%s: %s", s.base, key, resp.Status)
	}
	b, err := ioutil.ReadAll(resp.Body)
	return b, err == nil, err
}

type blobStore struct {
	bucket *blob.Bucket
	prefix string
}

func (s *blobStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	r, err := s.bucket.NewReader(ctx, path.Join(s.prefix, key))
	if err != nil {
		// The v0.1.1 blob API has no typed not-found error; treat any
		// read-open failure as an absent key and let the caller decide.
		return nil, false, nil
	}
	defer r.Close()
	b, err := ioutil.ReadAll(r)
	return b, err == nil, err
}

// openBucket opens the object-storage bucket holding a store. The
// accepted providers are "file" for local directories, "s3" for AWS S3
// and "gs"/"gcs" for Google Cloud Storage. For file URLs the bucket is
// rooted at the store directory itself.
func openBucket(ctx context.Context, u *url.URL) (*blob.Bucket, error) {
	switch u.Scheme {
	case "file":
		return fileblob.NewBucket(filepath.FromSlash(path.Join(u.Host, u.Path)))
	case "gs", "gcs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	}
	return nil, fmt.Errorf("dataset: invalid storage provider %s", u.Scheme)
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, name, c)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s := session.Must(session.NewSession(c))
	return s3blob.OpenBucket(ctx, s, name)
}
