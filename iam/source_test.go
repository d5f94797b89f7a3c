package iam

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// key from the published fernet test vectors
const testKey = "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4="

func TestFernet(t *testing.T) {
	token, err := Encrypt([]byte(remindCSV), testKey)
	require.NoError(t, err)
	assert.NotContains(t, string(token), "REMIND")

	plain, err := Decrypt(append(token, '\n'), testKey)
	require.NoError(t, err)
	assert.Equal(t, remindCSV, string(plain))

	_, err = Decrypt(token, "bm90IGEga2V5")
	assert.ErrorIs(t, err, ErrDecrypt)

	token[len(token)/2] ^= 1
	_, err = Decrypt(token, testKey)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestFetchDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "remind_SSP2-Base.csv"), []byte(remindCSV), 0o600))

	cube, err := Fetch(context.Background(), DirSource{Dir: dir}, "remind", "SSP2-Base", "", DefaultVariables())
	require.NoError(t, err)
	assert.Equal(t, []string{"CHA", "EUR"}, cube.Regions())

	_, err = Fetch(context.Background(), DirSource{Dir: dir}, "image", "SSP2-Base", "", DefaultVariables())
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "remind_SSP1.csv"), []byte(remindCSV), 0o600))
	_, err = Fetch(context.Background(), DirSource{Dir: dir}, "remind", "SSP1", "", DefaultVariables())
	assert.ErrorContains(t, err, "file holds scenario REMIND/SSP2-Base")
}

func TestFetchEncrypted(t *testing.T) {
	dir := t.TempDir()
	token, err := Encrypt([]byte(remindCSV), testKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "remind_SSP2-Base.csv"), token, 0o600))

	cube, err := Fetch(context.Background(), DirSource{Dir: dir}, "REMIND", "SSP2-Base", testKey, DefaultVariables())
	require.NoError(t, err)
	assert.Equal(t, "SSP2-Base", cube.Pathway)

	_, err = Fetch(context.Background(), DirSource{Dir: dir}, "REMIND", "SSP2-Base", "", DefaultVariables())
	assert.Error(t, err, "encrypted file read as plain text")
}

type objectsRoundTripper map[string]string

func (objects objectsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	body, found := objects[req.URL.Path]
	if req.Method != http.MethodGet || !found {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("")),
			Request:    req,
		}, nil
	}
	return &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{"Content-Type": []string{"text/csv"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}

func TestFetchS3(t *testing.T) {
	objects := objectsRoundTripper{"/scenarios/iam/remind_SSP2-Base.csv": remindCSV}
	source, err := NewS3Source(context.Background(), S3Config{
		Bucket:          "scenarios",
		Prefix:          "iam",
		Endpoint:        "https://s3.test",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	}, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: objects}
	})
	require.NoError(t, err)

	cube, err := Fetch(context.Background(), source, "remind", "SSP2-Base", "", DefaultVariables())
	require.NoError(t, err)
	assert.Equal(t, "REMIND", cube.Model)

	_, err = Fetch(context.Background(), source, "image", "SSP2-Base", "", DefaultVariables())
	assert.ErrorContains(t, err, "s3://scenarios/iam/image_SSP2-Base.csv")

	_, err = NewS3Source(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "remind_SSP2-PkBudg1150.csv", FileName("REMIND", "SSP2-PkBudg1150"))
}
