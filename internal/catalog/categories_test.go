package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-souq/internal/db"
)

func uid(t *testing.T) pgtype.UUID {
	t.Helper()
	id, err := db.ToUUID(uuid.NewString())
	require.NoError(t, err)
	return id
}

func TestBuildCategoryTree(t *testing.T) {
	electronics, phones, accessories, cases := uid(t), uid(t), uid(t), uid(t)
	books := uid(t)

	cats := []db.Category{
		{ID: electronics, Name: "Electronics"},
		{ID: phones, Name: "Phones", ParentID: electronics},
		{ID: accessories, Name: "Accessories", ParentID: phones},
		{ID: cases, Name: "Cases", ParentID: accessories}, // depth 4, dropped
		{ID: books, Name: "Books"},
	}

	tree := BuildCategoryTree(cats)
	require.Len(t, tree, 2)
	assert.Equal(t, "Books", tree[0].Name)
	assert.Equal(t, "Electronics", tree[1].Name)

	require.Len(t, tree[1].Children, 1)
	phonesNode := tree[1].Children[0]
	assert.Equal(t, "Phones", phonesNode.Name)

	require.Len(t, phonesNode.Children, 1)
	accNode := phonesNode.Children[0]
	assert.Equal(t, "Accessories", accNode.Name)
	assert.Empty(t, accNode.Children, "nodes beyond the depth cap are dropped")
}

func TestBuildCategoryTreeOrphan(t *testing.T) {
	orphan := db.Category{ID: uid(t), Name: "Lost", ParentID: uid(t)}
	tree := BuildCategoryTree([]db.Category{orphan})
	require.Len(t, tree, 1)
	assert.Equal(t, "Lost", tree[0].Name)
}

func TestBuildCategoryTreeSiblingsSorted(t *testing.T) {
	root := uid(t)
	cats := []db.Category{
		{ID: root, Name: "Root"},
		{ID: uid(t), Name: "Zebra", ParentID: root},
		{ID: uid(t), Name: "Apple", ParentID: root},
		{ID: uid(t), Name: "Mango", ParentID: root},
	}

	tree := BuildCategoryTree(cats)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 3)
	assert.Equal(t, "Apple", tree[0].Children[0].Name)
	assert.Equal(t, "Mango", tree[0].Children[1].Name)
	assert.Equal(t, "Zebra", tree[0].Children[2].Name)
}

func TestBuildCategoryTreeEmpty(t *testing.T) {
	assert.Empty(t, BuildCategoryTree(nil))
}
