package semantic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempPackage(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

const sampleModule = `
def fetch_user(user_id):
    """Fetch a user record from the database by its identifier."""
    return db.get(user_id)


def save_order(order, retries=3):
    """Persist an order to storage, retrying on transient failures."""
    return storage.write(order)


class OrderProcessor:
    """Processes incoming orders and applies business rules."""

    def process(self, order):
        """Validate and apply discounts to the given order."""
        return order
`

func TestBuild_ExtractsFunctionsAndClasses(t *testing.T) {
	root := writeTempPackage(t, map[string]string{"orders.py": sampleModule})

	idx, err := Build("shop", root)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
}

func TestBuild_NoSymbolsReturnsError(t *testing.T) {
	root := writeTempPackage(t, map[string]string{"empty.py": "# nothing here\n"})

	_, err := Build("shop", root)
	assert.Error(t, err)
}

func TestSearch_RanksSemanticallyRelatedOverUnrelated(t *testing.T) {
	root := writeTempPackage(t, map[string]string{"orders.py": sampleModule})

	idx, err := Build("shop", root)
	require.NoError(t, err)

	results := idx.Search("persist an order to the database", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "save_order", results[0].ItemName)
}

func TestSearch_ExactNameMatchIsBoosted(t *testing.T) {
	root := writeTempPackage(t, map[string]string{"orders.py": sampleModule})

	idx, err := Build("shop", root)
	require.NoError(t, err)

	results := idx.Search("fetch_user", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "fetch_user", results[0].ItemName)
}

func TestSearch_EmptyQueryOrNonPositiveLimitReturnsNothing(t *testing.T) {
	root := writeTempPackage(t, map[string]string{"orders.py": sampleModule})

	idx, err := Build("shop", root)
	require.NoError(t, err)

	assert.Empty(t, idx.Search("", 10))
	assert.Empty(t, idx.Search("fetch", 0))
}

func TestSearch_RespectsLimit(t *testing.T) {
	root := writeTempPackage(t, map[string]string{"orders.py": sampleModule})

	idx, err := Build("shop", root)
	require.NoError(t, err)

	results := idx.Search("order", 1)
	assert.Len(t, results, 1)
}

func TestBuild_DerivesModulePathFromNestedPackages(t *testing.T) {
	root := writeTempPackage(t, map[string]string{
		"shop/__init__.py":       "",
		"shop/orders/handler.py": sampleModule,
	})

	idx, err := Build("shop", root)
	require.NoError(t, err)

	results := idx.Search("fetch_user", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "shop.shop.orders.handler", results[0].ModulePath)
}

func TestCleanDocstring_DedentsMultilineDocstring(t *testing.T) {
	raw := "\"\"\"Summary line.\n\n    More detail indented.\n    Second detail line.\n    \"\"\""
	cleaned := cleanDocstring(raw)
	assert.Equal(t, "Summary line.\n\nMore detail indented.\nSecond detail line.", cleaned)
}

func TestSplitIdentifier_SplitsSnakeAndCamelCase(t *testing.T) {
	assert.Equal(t, []string{"fetch", "user", "by", "id"}, splitIdentifier("fetch_user_by_id"))
	assert.Equal(t, []string{"order", "processor"}, splitIdentifier("OrderProcessor"))
}

func TestCache_GetOrBuildReusesBuiltIndex(t *testing.T) {
	root := writeTempPackage(t, map[string]string{"orders.py": sampleModule})

	cache := NewCache()
	first, err := cache.GetOrBuild("shop", root)
	require.NoError(t, err)

	second, err := cache.GetOrBuild("shop", root)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_InvalidateForcesRebuild(t *testing.T) {
	root := writeTempPackage(t, map[string]string{"orders.py": sampleModule})

	cache := NewCache()
	first, err := cache.GetOrBuild("shop", root)
	require.NoError(t, err)

	cache.Invalidate("shop", root)
	second, err := cache.GetOrBuild("shop", root)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}
