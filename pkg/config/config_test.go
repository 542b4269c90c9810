package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
app:
  name: test-app
  port: 8080
  debug: true
  timeout: 5s
  tags:
    - web
    - api
database:
  host: localhost
  port: 27017
`

func writeTestConfig(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)
	return path
}

func TestNew(t *testing.T) {
	c := New()
	assert.NotNil(t, c)
	assert.NotNil(t, c.viper)
	assert.False(t, c.autoWatch)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, "config.yaml", testYAML)

	c := New(WithConfigFile(cfgPath))
	require.NoError(t, c.Load())

	assert.Equal(t, "test-app", c.GetString("app.name"))
	assert.Equal(t, 8080, c.GetInt("app.port"))
	assert.True(t, c.GetBool("app.debug"))
	assert.Equal(t, 5*time.Second, c.GetDuration("app.timeout"))
	assert.Equal(t, []string{"web", "api"}, c.GetStringSlice("app.tags"))
}

func TestLoadWithNameAndPaths(t *testing.T) {
	dir := t.TempDir()
	writeTestConfig(t, dir, "myconfig.yaml", testYAML)

	c := New(
		WithConfigName("myconfig"),
		WithConfigType("yaml"),
		WithConfigPaths(dir),
	)
	require.NoError(t, c.Load())
	assert.Equal(t, "test-app", c.GetString("app.name"))
}

func TestLoadNotFound(t *testing.T) {
	c := New(
		WithConfigName("no-such-config"),
		WithConfigType("yaml"),
		WithConfigPaths(t.TempDir()),
	)
	err := c.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, "config.yaml", testYAML)

	c := New(
		WithConfigFile(cfgPath),
		WithDefaults(map[string]any{
			"app.name":   "fallback",
			"app.locale": "zh-CN",
		}),
	)
	require.NoError(t, c.Load())

	// 文件值覆盖默认值，缺失的键使用默认值
	assert.Equal(t, "test-app", c.GetString("app.name"))
	assert.Equal(t, "zh-CN", c.GetString("app.locale"))
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, "config.yaml", testYAML)

	t.Setenv("LUTEST_APP_NAME", "from-env")

	c := New(
		WithConfigFile(cfgPath),
		WithEnvPrefix("LUTEST"),
		WithEnvKeyReplacer(strings.NewReplacer(".", "_")),
	)
	require.NoError(t, c.Load())
	assert.Equal(t, "from-env", c.GetString("app.name"))
}

func TestUnmarshalKey(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, "config.yaml", testYAML)

	c := New(WithConfigFile(cfgPath))
	require.NoError(t, c.Load())

	var db struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	}
	require.NoError(t, c.UnmarshalKey("database", &db))
	assert.Equal(t, "localhost", db.Host)
	assert.Equal(t, 27017, db.Port)
}

func TestSub(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, "config.yaml", testYAML)

	c := New(WithConfigFile(cfgPath))
	require.NoError(t, c.Load())

	sub := c.Sub("database")
	require.NotNil(t, sub)
	assert.Equal(t, "localhost", sub.GetString("host"))

	assert.Nil(t, c.Sub("nonexistent"))
}

func TestSetAndIsSet(t *testing.T) {
	c := New()
	assert.False(t, c.IsSet("custom.key"))
	c.Set("custom.key", "value")
	assert.True(t, c.IsSet("custom.key"))
	assert.Equal(t, "value", c.GetString("custom.key"))
}

func TestWatchOnChange(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, "config.yaml", testYAML)

	changed := make(chan fsnotify.Event, 1)
	c := New(
		WithConfigFile(cfgPath),
		WithAutoWatch(true),
		WithOnChange(func(e fsnotify.Event) {
			select {
			case changed <- e:
			default:
			}
		}),
	)
	require.NoError(t, c.Load())
	defer c.Close()

	// 等待 watcher 启动后修改文件
	time.Sleep(100 * time.Millisecond)
	updated := strings.Replace(testYAML, "test-app", "updated-app", 1)
	require.NoError(t, os.WriteFile(cfgPath, []byte(updated), 0644))

	select {
	case <-changed:
		// 给 viper 的重读留一点时间
		deadline := time.Now().Add(2 * time.Second)
		for c.GetString("app.name") != "updated-app" && time.Now().Before(deadline) {
			time.Sleep(20 * time.Millisecond)
		}
		assert.Equal(t, "updated-app", c.GetString("app.name"))
	case <-time.After(3 * time.Second):
		t.Skip("文件系统事件未在期限内到达，跳过（CI 文件系统差异）")
	}
}

func TestStopWatchSilencesCallback(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir, "config.yaml", testYAML)

	changed := make(chan struct{}, 4)
	c := New(
		WithConfigFile(cfgPath),
		WithAutoWatch(true),
		WithOnChange(func(e fsnotify.Event) {
			changed <- struct{}{}
		}),
	)
	require.NoError(t, c.Load())

	c.StopWatch()
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(cfgPath, []byte(testYAML+"\nextra: 1\n"), 0644))

	select {
	case <-changed:
		t.Error("callback fired after StopWatch")
	case <-time.After(500 * time.Millisecond):
	}
}
