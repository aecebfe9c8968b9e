package search

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"anoa.com/storyverse/internal/entity"
	"anoa.com/storyverse/pkg/logger"
	"anoa.com/storyverse/pkg/textcodec"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const StoriesIndex = "stories"

// maxIndexedContent caps the body text sent to the index.
const maxIndexedContent = 20000

// StoryIndex mirrors published stories into Meilisearch and answers
// full-text queries with story ids in relevance order.
type StoryIndex interface {
	IndexStory(ctx context.Context, story *entity.Story) error
	RemoveStory(ctx context.Context, id primitive.ObjectID) error
	SearchStories(ctx context.Context, query string, offset, limit int64) ([]primitive.ObjectID, int64, error)
}

// documentIndex is the part of meilisearch.IndexManager this package uses.
type documentIndex interface {
	AddDocumentsWithContext(ctx context.Context, documentsPtr interface{}, primaryKey *string) (*meilisearch.TaskInfo, error)
	DeleteDocumentWithContext(ctx context.Context, identifier string) (*meilisearch.TaskInfo, error)
	SearchRawWithContext(ctx context.Context, query string, request *meilisearch.SearchRequest) (*json.RawMessage, error)
}

type storyIndex struct {
	index     documentIndex
	sanitizer *bluemonday.Policy
}

func NewStoryIndex(index documentIndex) StoryIndex {
	return &storyIndex{
		index:     index,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Configure applies index settings. Failures are logged; search still works
// on an unconfigured index, only with default ranking.
func Configure(client meilisearch.ServiceManager) {
	index := client.Index(StoriesIndex)

	searchable := []string{"title", "description", "tags", "genres", "author", "content"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		logger.Log.WithError(err).Warn("failed to update stories searchable attributes")
	}

	filterable := []interface{}{"genres", "editorPick"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		logger.Log.WithError(err).Warn("failed to update stories filterable attributes")
	}

	sortable := []string{"createdAt", "likesCount"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		logger.Log.WithError(err).Warn("failed to update stories sortable attributes")
	}

	logger.Log.WithField("index", StoriesIndex).Info("meilisearch index configured")
}

type storyDoc struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Author      string   `json:"author"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	EditorPick  bool     `json:"editorPick"`
	LikesCount  int64    `json:"likesCount"`
	CreatedAt   int64    `json:"createdAt"`
}

type searchHits struct {
	Hits []struct {
		ID string `json:"id"`
	} `json:"hits"`
	EstimatedTotalHits int64 `json:"estimatedTotalHits"`
}

func (s *storyIndex) IndexStory(ctx context.Context, story *entity.Story) error {
	if !story.Published {
		return s.RemoveStory(ctx, story.ID)
	}

	content, err := textcodec.Unpack(story.Content, story.ContentCompressed, story.ContentEncoding)
	if err != nil {
		return fmt.Errorf("index story %s: %w", story.ID.Hex(), err)
	}

	doc := storyDoc{
		ID:          story.ID.Hex(),
		Title:       story.Title,
		Description: story.Description,
		Content:     truncate(s.cleanContent(content), maxIndexedContent),
		Author:      authorText(story),
		Genres:      nonNil(story.Genres),
		Tags:        nonNil(story.Tags),
		EditorPick:  story.EditorPick,
		LikesCount:  story.LikesCount,
		CreatedAt:   story.CreatedAt.Unix(),
	}

	primaryKey := "id"
	task, err := s.index.AddDocumentsWithContext(ctx, []storyDoc{doc}, &primaryKey)
	if err != nil {
		return fmt.Errorf("index story %s: %w", doc.ID, err)
	}
	logger.Log.WithFields(logrus.Fields{
		"story_id": doc.ID,
		"task_uid": task.TaskUID,
	}).Debug("story queued for indexing")
	return nil
}

func (s *storyIndex) RemoveStory(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.index.DeleteDocumentWithContext(ctx, id.Hex()); err != nil {
		return fmt.Errorf("remove story %s from index: %w", id.Hex(), err)
	}
	return nil
}

func (s *storyIndex) SearchStories(ctx context.Context, query string, offset, limit int64) ([]primitive.ObjectID, int64, error) {
	raw, err := s.index.SearchRawWithContext(ctx, strings.TrimSpace(query), &meilisearch.SearchRequest{
		Offset:               offset,
		Limit:                limit,
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search stories: %w", err)
	}
	if raw == nil {
		return nil, 0, nil
	}

	var res searchHits
	if err := json.Unmarshal(*raw, &res); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := primitive.ObjectIDFromHex(hit.ID)
		if err != nil {
			logger.Log.WithField("doc_id", hit.ID).Warn("search hit with malformed id")
			continue
		}
		ids = append(ids, id)
	}
	return ids, res.EstimatedTotalHits, nil
}

// cleanContent turns stored HTML into plain words, keeping block boundaries
// as spaces so adjacent paragraphs don't merge.
func (s *storyIndex) cleanContent(content string) string {
	r := strings.NewReplacer("</p>", " ", "<br>", " ", "<br/>", " ", "<br />", " ", "</div>", " ", "</h2>", " ", "</li>", " ")
	text := html.UnescapeString(s.sanitizer.Sanitize(r.Replace(content)))
	return strings.Join(strings.Fields(text), " ")
}

func authorText(story *entity.Story) string {
	if a := story.AuthorSnapshot; a != nil {
		return strings.TrimSpace(a.Name + " " + a.Username)
	}
	if a := story.Author.Embedded; a != nil {
		return strings.TrimSpace(a.Name + " " + a.Username)
	}
	if story.Author.Kind == entity.AuthorLegacyUsername {
		return story.Author.LookupUsername()
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
