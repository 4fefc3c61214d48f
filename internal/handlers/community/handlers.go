package community

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	apphttp "realestate/internal/http"
	"realestate/internal/models"
	"realestate/internal/services/auth"
	"realestate/internal/services/docstore"
)

// Collections holding community documents
const (
	PostsCollection    = "posts"
	CommentsCollection = "comments"
	PollsCollection    = "polls"
)

const (
	maxTitleLength = 200
	maxBodyLength  = 10_000
	minPollOptions = 2
	maxPollOptions = 10
)

var (
	store docstore.Store

	// voteMu serializes the read-modify-write of poll votes
	voteMu sync.Mutex
)

var (
	// ErrAlreadyVoted is returned when a user votes twice on one poll
	ErrAlreadyVoted = errors.New("already voted on this poll")

	// ErrInvalidOption is returned for an option index outside the poll
	ErrInvalidOption = errors.New("invalid poll option")
)

// Initialize sets up the community package with required dependencies
func Initialize(ds docstore.Store) {
	store = ds
}

// RegisterRoutes registers all community routes
func RegisterRoutes(r chi.Router) {
	r.Route("/api/community", func(r chi.Router) {
		r.Get("/posts", handleListPosts)
		r.With(auth.RequireAuth).Post("/posts", handleCreatePost)
		r.Get("/posts/{id}", handleGetPost)
		r.With(auth.RequireAuth).Delete("/posts/{id}", handleDeletePost)
		r.With(auth.RequireAuth).Post("/posts/{id}/comments", handleCreateComment)

		r.Get("/polls", handleListPolls)
		r.With(auth.RequireAuth).Post("/polls", handleCreatePoll)
		r.With(auth.RequireAuth).Post("/polls/{id}/vote", handleVote)
	})
}

// authorName is the display name shown next to a post or comment
func authorName(p auth.Principal) string {
	if name, _, ok := strings.Cut(p.Email, "@"); ok && name != "" {
		return name
	}
	return p.UID
}

func checkText(field, value string, limit int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if len(value) > limit {
		return "", fmt.Errorf("%s must be at most %d characters", field, limit)
	}
	return value, nil
}

func writeStoreError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidName) {
		apphttp.ErrorJSON(w, what+" not found", http.StatusNotFound)
		return
	}
	apphttp.InternalError(w, "loading "+what, err)
}

// create stores v in collection and decodes the stored document into out
func create(ctx context.Context, collection string, v, out any) error {
	doc, err := docstore.Encode(v)
	if err != nil {
		return err
	}
	delete(doc, docstore.FieldID)
	created, err := store.Create(ctx, collection, doc)
	if err != nil {
		return fmt.Errorf("creating %s document: %w", collection, err)
	}
	return docstore.Decode(created, out)
}

func loadPost(ctx context.Context, id string) (models.Post, error) {
	doc, err := store.Get(ctx, PostsCollection, id)
	if err != nil {
		return models.Post{}, err
	}
	var p models.Post
	err = docstore.Decode(doc, &p)
	return p, err
}

// Posts

func handleListPosts(w http.ResponseWriter, r *http.Request) {
	docs, err := store.List(r.Context(), PostsCollection, nil)
	if err != nil {
		apphttp.InternalError(w, "listing posts", err)
		return
	}
	posts, err := docstore.DecodeAll[models.Post](docs)
	if err != nil {
		apphttp.InternalError(w, "decoding posts", err)
		return
	}

	if tag := strings.ToLower(r.URL.Query().Get("tag")); tag != "" {
		posts = slices.DeleteFunc(posts, func(p models.Post) bool {
			return !slices.Contains(p.Tags, tag)
		})
	}
	// Newest first
	slices.Reverse(posts)
	if posts == nil {
		posts = []models.Post{}
	}
	apphttp.WriteJSON(w, http.StatusOK, posts)
}

// PostRequest is the body for creating a post
type PostRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

func handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	post := models.Post{}
	var err error
	if post.Title, err = checkText("title", req.Title, maxTitleLength); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	if post.Body, err = checkText("body", req.Body, maxBodyLength); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, tag := range req.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" && !slices.Contains(post.Tags, tag) {
			post.Tags = append(post.Tags, tag)
		}
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	post.AuthorUID = p.UID
	post.AuthorName = authorName(p)

	var created models.Post
	if err := create(r.Context(), PostsCollection, post, &created); err != nil {
		apphttp.InternalError(w, "creating post", err)
		return
	}
	slog.Info("post created", "id", created.ID, "author", created.AuthorUID)
	apphttp.WriteJSON(w, http.StatusCreated, created)
}

func handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := loadPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "post", err)
		return
	}

	docs, err := store.List(r.Context(), CommentsCollection, docstore.Filter{"post_id": post.ID})
	if err != nil {
		apphttp.InternalError(w, "listing comments", err)
		return
	}
	comments, err := docstore.DecodeAll[models.Comment](docs)
	if err != nil {
		apphttp.InternalError(w, "decoding comments", err)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	apphttp.WriteJSON(w, http.StatusOK, models.PostThread{Post: post, Comments: comments})
}

// handleDeletePost removes a post and its comments. Only the author or an
// admin may delete.
func handleDeletePost(w http.ResponseWriter, r *http.Request) {
	post, err := loadPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "post", err)
		return
	}
	p, _ := auth.PrincipalFromContext(r.Context())
	if p.UID != post.AuthorUID && !p.IsAdmin() {
		apphttp.ErrorJSON(w, auth.ErrForbidden.Error(), http.StatusForbidden)
		return
	}

	docs, err := store.List(r.Context(), CommentsCollection, docstore.Filter{"post_id": post.ID})
	if err != nil {
		apphttp.InternalError(w, "listing comments", err)
		return
	}
	for _, doc := range docs {
		if err := store.Delete(r.Context(), CommentsCollection, doc.ID()); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			apphttp.InternalError(w, "deleting comment", err)
			return
		}
	}
	if err := store.Delete(r.Context(), PostsCollection, post.ID); err != nil {
		writeStoreError(w, "post", err)
		return
	}

	slog.Info("post deleted", "id", post.ID, "by", p.UID, "comments", len(docs))
	w.WriteHeader(http.StatusNoContent)
}

// CommentRequest is the body for commenting on a post
type CommentRequest struct {
	Body string `json:"body"`
}

func handleCreateComment(w http.ResponseWriter, r *http.Request) {
	post, err := loadPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "post", err)
		return
	}

	var req CommentRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	body, err := checkText("body", req.Body, maxBodyLength)
	if err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, _ := auth.PrincipalFromContext(r.Context())
	comment := models.Comment{
		PostID:     post.ID,
		AuthorUID:  p.UID,
		AuthorName: authorName(p),
		Body:       body,
	}

	var created models.Comment
	if err := create(r.Context(), CommentsCollection, comment, &created); err != nil {
		apphttp.InternalError(w, "creating comment", err)
		return
	}
	apphttp.WriteJSON(w, http.StatusCreated, created)
}

// Polls

func viewer(r *http.Request) string {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p.UID
}

func handleListPolls(w http.ResponseWriter, r *http.Request) {
	docs, err := store.List(r.Context(), PollsCollection, nil)
	if err != nil {
		apphttp.InternalError(w, "listing polls", err)
		return
	}
	polls, err := docstore.DecodeAll[models.Poll](docs)
	if err != nil {
		apphttp.InternalError(w, "decoding polls", err)
		return
	}

	uid := viewer(r)
	results := make([]models.PollResult, 0, len(polls))
	for i := len(polls) - 1; i >= 0; i-- {
		results = append(results, polls[i].Result(uid))
	}
	apphttp.WriteJSON(w, http.StatusOK, results)
}

// PollRequest is the body for creating a poll
type PollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req PollRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	question, err := checkText("question", req.Question, maxTitleLength)
	if err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}
	var options []string
	for _, o := range req.Options {
		if o = strings.TrimSpace(o); o != "" && !slices.Contains(options, o) {
			options = append(options, o)
		}
	}
	if len(options) < minPollOptions || len(options) > maxPollOptions {
		apphttp.ErrorJSON(w, fmt.Sprintf("a poll needs %d to %d distinct options", minPollOptions, maxPollOptions), http.StatusBadRequest)
		return
	}

	poll := models.Poll{
		AuthorUID: viewer(r),
		Question:  question,
		Options:   options,
		Votes:     map[string]int{},
	}
	var created models.Poll
	if err := create(r.Context(), PollsCollection, poll, &created); err != nil {
		apphttp.InternalError(w, "creating poll", err)
		return
	}
	apphttp.WriteJSON(w, http.StatusCreated, created.Result(poll.AuthorUID))
}

// VoteRequest selects a poll option by index
type VoteRequest struct {
	Option int `json:"option"`
}

// Vote records uid's choice on a poll. Each uid votes once.
func Vote(ctx context.Context, pollID, uid string, option int) (models.Poll, error) {
	voteMu.Lock()
	defer voteMu.Unlock()

	doc, err := store.Get(ctx, PollsCollection, pollID)
	if err != nil {
		return models.Poll{}, err
	}
	var poll models.Poll
	if err := docstore.Decode(doc, &poll); err != nil {
		return models.Poll{}, err
	}

	if option < 0 || option >= len(poll.Options) {
		return models.Poll{}, fmt.Errorf("%w: must be between 0 and %d", ErrInvalidOption, len(poll.Options)-1)
	}
	if _, ok := poll.Votes[uid]; ok {
		return models.Poll{}, ErrAlreadyVoted
	}
	if poll.Votes == nil {
		poll.Votes = map[string]int{}
	}
	poll.Votes[uid] = option

	updated, err := store.Update(ctx, PollsCollection, pollID, docstore.Document{"votes": poll.Votes})
	if err != nil {
		return models.Poll{}, err
	}
	var out models.Poll
	err = docstore.Decode(updated, &out)
	return out, err
}

func handleVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
		return
	}

	uid := viewer(r)
	poll, err := Vote(r.Context(), chi.URLParam(r, "id"), uid, req.Option)
	switch {
	case err == nil:
		apphttp.WriteJSON(w, http.StatusOK, poll.Result(uid))
	case errors.Is(err, ErrAlreadyVoted):
		apphttp.ErrorJSON(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidOption):
		apphttp.ErrorJSON(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, docstore.ErrInvalidName):
		apphttp.ErrorJSON(w, "poll not found", http.StatusNotFound)
	default:
		apphttp.InternalError(w, "recording vote", err)
	}
}
