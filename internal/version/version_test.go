package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppName_IsSyncd(t *testing.T) {
	require.Equal(t, "syncd", AppName)
}

func TestVersionStrings_NonEmptyAndContainParts(t *testing.T) {
	require.NotEmpty(t, Version)
	require.NotEmpty(t, Revision)
	require.NotEmpty(t, AppName)

	short := Short()
	require.Contains(t, short, Version)
	require.Contains(t, short, Revision)

	shortApp := ShortWithApp()
	require.True(t, strings.HasPrefix(shortApp, AppName+" "))

	detailed := Detailed()
	require.Contains(t, detailed, Version)
	require.Contains(t, detailed, Revision)
	require.Contains(t, detailed, "/") // GOOS/GOARCH part

	detailedApp := DetailedWithApp()
	require.True(t, strings.HasPrefix(detailedApp, AppName+" "))
}

func TestApplyBuildInfo_PopulatesDefaultsFromDevSentinel(t *testing.T) {
	origVersion, origRevision, origBuildDate := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = origVersion, origRevision, origBuildDate
	})

	Version = "0.1.0-dev"
	Revision = "HEAD"
	BuildDate = ""

	applyBuildInfo("v9.9.9", map[string]string{
		"vcs.revision": "abcdef1234567890",
		"vcs.modified": "true",
		"vcs.time":     "2025-12-12T01:00:00Z",
	})

	require.Equal(t, "9.9.9", Version, "expected Version from main module")
	require.Equal(t, "abcdef1234567890-dirty", Revision, "expected dirty revision")
	require.Equal(t, "2025-12-12T01:00:00Z", BuildDate, "expected BuildDate from vcs.time")
}

func TestApplyBuildInfo_EmptyVersionAlsoTriggersDefault(t *testing.T) {
	origVersion, origRevision, origBuildDate := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = origVersion, origRevision, origBuildDate
	})

	Version = ""
	Revision = ""
	BuildDate = ""

	applyBuildInfo("v2.0.0", map[string]string{"vcs.revision": "feedface"})

	require.Equal(t, "2.0.0", Version)
	require.Equal(t, "feedface", Revision)
}

func TestApplyBuildInfo_DoesNotOverrideLdflags(t *testing.T) {
	origVersion, origRevision, origBuildDate := Version, Revision, BuildDate
	t.Cleanup(func() {
		Version, Revision, BuildDate = origVersion, origRevision, origBuildDate
	})

	Version = "1.2.3"
	Revision = "deadbeef"
	BuildDate = "from-ldflags"

	applyBuildInfo("v9.9.9", map[string]string{
		"vcs.revision": "abcdef",
		"vcs.time":     "2025-12-12T01:00:00Z",
	})

	require.Equal(t, "1.2.3", Version, "ldflags Version must win")
	require.Equal(t, "deadbeef", Revision, "ldflags Revision must win")
	require.Equal(t, "from-ldflags", BuildDate, "ldflags BuildDate must win")
}
