package dedup

import (
	"fmt"
	"sync"
	"testing"

	"go-jobscout/internal/models"

	"github.com/stretchr/testify/assert"
)

func rec(id, url string) models.JobRecord {
	return models.JobRecord{ID: id, URL: url, Title: "t", Organization: "o"}
}

func TestSeen_Add(t *testing.T) {
	s := NewSeen()

	assert.True(t, s.Add(rec("1", "https://x/jobs/view/1")))
	assert.False(t, s.Add(rec("1", "https://x/jobs/view/other")), "same id")
	assert.False(t, s.Add(rec("2", "https://x/jobs/view/1")), "same url")
	assert.True(t, s.Add(rec("3", "")))
	assert.True(t, s.Add(rec("4", "")), "empty urls never collide")
	assert.Equal(t, 3, s.Len())
}

func TestSeen_FilterAcrossPages(t *testing.T) {
	s := NewSeen()
	page1 := []models.JobRecord{rec("a", "u/a"), rec("b", "u/b"), rec("c", "u/c")}
	page2 := []models.JobRecord{rec("a", "u/z"), rec("d", "u/b"), rec("e", "u/e")}

	all := append(s.Filter(page1), s.Filter(page2)...)

	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "e"}, ids)
}

func TestSeen_Reset(t *testing.T) {
	s := NewSeen()
	s.Add(rec("1", "u"))
	s.Reset()

	assert.Equal(t, 0, s.Len())
	assert.True(t, s.Add(rec("1", "u")))
}

func TestSeen_Concurrent(t *testing.T) {
	s := NewSeen()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Add(rec(fmt.Sprint(i), fmt.Sprintf("u/%d", i)))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, s.Len())
}
