package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airtable/credentials"
)

func TestStatic(t *testing.T) {
	key, err := credentials.Static("key-abc").APIKey("appAny")
	require.NoError(t, err)
	assert.Equal(t, "key-abc", key)

	_, err = credentials.Static("").APIKey("appAny")
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("AIRTABLE_TEST_KEY", "key-from-env")

	r := credentials.FromEnv("AIRTABLE_TEST_KEY")
	key, err := r.APIKey("appAny")
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", key)

	// Ключ читается при каждом обращении, а не один раз.
	t.Setenv("AIRTABLE_TEST_KEY", "rotated")
	key, err = r.APIKey("appAny")
	require.NoError(t, err)
	assert.Equal(t, "rotated", key)

	_, err = credentials.FromEnv("AIRTABLE_MISSING_KEY").APIKey("appAny")
	assert.Error(t, err)
}

func writeSecrets(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, credentials.SecretsFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestSecretsFile(t *testing.T) {
	dir := t.TempDir()
	writeSecrets(t, dir, "appZMKfqiPobryEy1: key-one\nappOther: key-two\n")

	r := credentials.SecretsFileIn(dir)

	key, err := r.APIKey("appZMKfqiPobryEy1")
	require.NoError(t, err)
	assert.Equal(t, "key-one", key)

	key, err = r.APIKey("appOther")
	require.NoError(t, err)
	assert.Equal(t, "key-two", key)

	_, err = r.APIKey("appUnknown")
	assert.Error(t, err)
}

func TestSecretsFileDirOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeSecrets(t, first, "appBase: key-first\n")
	writeSecrets(t, second, "appBase: key-second\n")

	key, err := credentials.SecretsFileIn(first, second).APIKey("appBase")
	require.NoError(t, err)
	assert.Equal(t, "key-first", key, "каталоги просматриваются в порядке приоритета")
}

func TestSecretsFileCachesContent(t *testing.T) {
	dir := t.TempDir()
	writeSecrets(t, dir, "appBase: key-before\n")

	r := credentials.SecretsFileIn(dir)
	key, err := r.APIKey("appBase")
	require.NoError(t, err)
	assert.Equal(t, "key-before", key)

	writeSecrets(t, dir, "appBase: key-after\n")
	key, err = r.APIKey("appBase")
	require.NoError(t, err)
	assert.Equal(t, "key-before", key, "файл читается один раз на время жизни резолвера")
}

func TestSecretsFileMissing(t *testing.T) {
	_, err := credentials.SecretsFileIn(t.TempDir()).APIKey("appBase")
	assert.Error(t, err)
}
