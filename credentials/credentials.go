// Package credentials отвечает за получение API-ключей Airtable.
// Поддерживаются три стратегии: статический ключ, переменная окружения
// и YAML-файл секретов, где ключи разложены по идентификаторам баз.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	// SecretsFileName — имя файла секретов по умолчанию.
	SecretsFileName = "airtable_secrets.yaml"
)

// Каталоги, в которых ищется файл секретов, в порядке приоритета.
var secretsDirs = []string{"config", "/etc/airtable"}

// Resolver выдаёт API-ключ для базы.
type Resolver interface {
	APIKey(baseID string) (string, error)
}

// ResolverFunc адаптирует функцию к интерфейсу Resolver.
type ResolverFunc func(baseID string) (string, error)

func (f ResolverFunc) APIKey(baseID string) (string, error) { return f(baseID) }

// Static возвращает резолвер с фиксированным ключом для всех баз.
func Static(key string) Resolver {
	return ResolverFunc(func(string) (string, error) {
		if key == "" {
			return "", fmt.Errorf("credentials: empty api key")
		}
		return key, nil
	})
}

// FromEnv читает ключ из переменной окружения при каждом обращении.
func FromEnv(name string) Resolver {
	return ResolverFunc(func(string) (string, error) {
		key := os.Getenv(name)
		if key == "" {
			return "", fmt.Errorf("credentials: environment variable %s is not set", name)
		}
		return key, nil
	})
}

// secretsFile читает YAML-файл вида «base id -> api key». Содержимое
// кэшируется на время жизни процесса.
type secretsFile struct {
	dirs []string

	once sync.Once
	keys map[string]string
	err  error
}

// SecretsFile ищет airtable_secrets.yaml в ./config и /etc/airtable.
func SecretsFile() Resolver { return &secretsFile{dirs: secretsDirs} }

// SecretsFileIn ищет файл секретов в перечисленных каталогах.
func SecretsFileIn(dirs ...string) Resolver { return &secretsFile{dirs: dirs} }

func (s *secretsFile) APIKey(baseID string) (string, error) {
	s.once.Do(s.load)
	if s.err != nil {
		return "", s.err
	}
	// viper приводит ключи к нижнему регистру, идентификаторы баз
	// сравниваем так же.
	key, ok := s.keys[strings.ToLower(baseID)]
	if !ok {
		return "", fmt.Errorf("credentials: no api key for base %q", baseID)
	}
	return key, nil
}

func (s *secretsFile) load() {
	path, err := findSecretsFile(s.dirs)
	if err != nil {
		s.err = err
		return
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		s.err = fmt.Errorf("credentials: read %s: %w", path, err)
		return
	}

	s.keys = make(map[string]string)
	for _, baseID := range v.AllKeys() {
		s.keys[baseID] = v.GetString(baseID)
	}
}

func findSecretsFile(dirs []string) (string, error) {
	for _, dir := range dirs {
		path := filepath.Join(dir, SecretsFileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("credentials: cannot find %s in %v", SecretsFileName, dirs)
}
