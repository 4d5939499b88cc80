package pagination

import (
	"fmt"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chats-be/internal/database"
	"chats-be/internal/models"
)

func seedUsers(t *testing.T, n int) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.User{Username: fmt.Sprintf("user%03d", i), PasswordHash: "x"}).Error)
	}
	return db
}

func byID(db *gorm.DB) *gorm.DB { return db.Order("id") }

func TestSize(t *testing.T) {
	cases := map[string]int{
		"":     20,
		"5":    5,
		"100":  100,
		"1000": 100,
		"0":    20,
		"-3":   20,
		"ten":  20,
	}
	for raw, want := range cases {
		assert.Equal(t, want, Standard.Size(url.Values{"page_size": {raw}}), raw)
	}
}

func TestPaginateFirstPage(t *testing.T) {
	db := seedUsers(t, 45)
	r := httptest.NewRequest("GET", "http://chats.test/api/users/?search=x", nil)

	page, err := Paginate[models.User](r, Standard, db.Model(&models.User{}), byID)
	require.NoError(t, err)

	assert.Equal(t, int64(45), page.Count)
	assert.Len(t, page.Results, 20)
	assert.Equal(t, "user000", page.Results[0].Username)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://chats.test/api/users/?page=2&search=x", *page.Next)
	assert.Nil(t, page.Previous)
}

func TestPaginateLinks(t *testing.T) {
	db := seedUsers(t, 45)

	r := httptest.NewRequest("GET", "/api/users/?page=2", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	page, err := Paginate[models.User](r, Standard, db.Model(&models.User{}), byID)
	require.NoError(t, err)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "https://example.com/api/users/", *page.Previous)
	require.NotNil(t, page.Next)
	assert.Equal(t, "https://example.com/api/users/?page=3", *page.Next)

	r = httptest.NewRequest("GET", "/api/users/?page=last", nil)
	page, err = Paginate[models.User](r, Standard, db.Model(&models.User{}), byID)
	require.NoError(t, err)
	assert.Len(t, page.Results, 5)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://example.com/api/users/?page=2", *page.Previous)
}

func TestPaginateCapsPageSize(t *testing.T) {
	db := seedUsers(t, 120)
	r := httptest.NewRequest("GET", "/api/users/?page_size=1000", nil)

	page, err := Paginate[models.User](r, Standard, db.Model(&models.User{}), byID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), page.Count)
	assert.Len(t, page.Results, 100)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page_size=1000")
}

func TestPaginateInvalidPage(t *testing.T) {
	db := seedUsers(t, 3)
	for _, p := range []string{"0", "2", "abc", "-1"} {
		r := httptest.NewRequest("GET", "/api/users/?page="+p, nil)
		_, err := Paginate[models.User](r, Standard, db.Model(&models.User{}), byID)
		assert.ErrorIs(t, err, ErrInvalidPage, p)
	}
}

func TestPaginateEmpty(t *testing.T) {
	db := seedUsers(t, 0)
	r := httptest.NewRequest("GET", "/api/users/", nil)

	page, err := Paginate[models.User](r, Standard, db.Model(&models.User{}), byID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Count)
	assert.NotNil(t, page.Results)
	assert.Empty(t, page.Results)
	assert.Nil(t, page.Next)
	assert.Nil(t, page.Previous)
}

func TestNilPageEnvelope(t *testing.T) {
	var p *Page[models.User]
	env := p.Envelope()
	assert.Equal(t, int64(0), env.Count)
	assert.NotNil(t, env.Results)
}

func TestCountIgnoresFetchScopes(t *testing.T) {
	db := seedUsers(t, 10)
	r := httptest.NewRequest("GET", "/api/users/?page_size=3", nil)

	base := db.Model(&models.User{}).Where("username >= ?", "user005")
	page, err := Paginate[models.User](r, Standard, base, func(db *gorm.DB) *gorm.DB { return db.Order("id DESC") })
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Count)
	assert.Equal(t, "user009", page.Results[0].Username)
}
