package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComponentNameStripsLibPrefix(t *testing.T) {
	assert.Equal(t, "curl", ComponentName("/usr/lib/libcurl.so"))
}

func TestComponentNameStripsVersionSuffix(t *testing.T) {
	assert.Equal(t, "curl", ComponentName("/usr/lib/libcurl-1.2.3.so"))
	assert.Equal(t, "curl", ComponentName("/usr/lib/libcurl-1.so"))
}

func TestComponentNameStripsBuildConfigSuffix(t *testing.T) {
	assert.Equal(t, "myapp", ComponentName("/bin/myapp_debug"))
	assert.Equal(t, "myapp", ComponentName("/bin/myapp_release"))
	assert.Equal(t, "mylib", ComponentName("/lib/libmylib_static.a"))
	assert.Equal(t, "mylib", ComponentName("/lib/libmylib_shared.so"))
}

func TestComponentNameLeavesPlainNameAlone(t *testing.T) {
	assert.Equal(t, "myapp", ComponentName("/bin/myapp"))
}
