package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tickertalk/internal/middleware"
	"tickertalk/internal/services"
	"tickertalk/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	feed   *services.FeedService
	images *services.ImageStore
}

func NewPostHandler(feed *services.FeedService, images *services.ImageStore) *PostHandler {
	return &PostHandler{feed: feed, images: images}
}

func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.feed.ListPosts()
	if err != nil {
		utils.Sugar.Errorw("list posts", "error", err)
		RenderError(c, http.StatusInternalServerError, "Could not load posts.")
		return
	}
	Render(c, http.StatusOK, "post/list.html", gin.H{"Posts": posts, "ListPostsActive": true})
}

func (h *PostHandler) Detail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}
	post, err := h.feed.GetPost(id)
	if errors.Is(err, services.ErrPostNotFound) {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}
	if err != nil {
		utils.Sugar.Errorw("get post", "post_id", id, "error", err)
		RenderError(c, http.StatusInternalServerError, "Could not load the post.")
		return
	}

	liked := false
	if u := middleware.CurrentUser(c); u != nil {
		liked, _ = h.feed.HasLiked(post.ID, u.ID)
	}
	Render(c, http.StatusOK, "post/detail.html", gin.H{"Post": post, "Liked": liked})
}

func (h *PostHandler) ShowCreate(c *gin.Context) {
	Render(c, http.StatusOK, "post/create.html", nil)
}

func (h *PostHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	title := c.PostForm("title")
	content := c.PostForm("content")
	if content == "" {
		content = c.PostForm("text")
	}

	image, err := saveUpload(c, "file_upload", h.images)
	if err != nil {
		Render(c, http.StatusBadRequest, "post/create.html", gin.H{"Error": err.Error(), "Title": title, "Content": content})
		return
	}

	post, err := h.feed.CreatePost(user.ID, title, content, image)
	if err != nil {
		discardUpload(h.images, image)
		var ve *services.ValidationError
		switch {
		case errors.Is(err, services.ErrEmptyTitle):
			Render(c, http.StatusBadRequest, "post/create.html", gin.H{"Error": "A title is required.", "Content": content})
		case errors.As(err, &ve):
			Render(c, http.StatusBadRequest, "post/create.html", gin.H{"Error": ve.Message, "Title": title, "Content": content})
		default:
			utils.Sugar.Errorw("create post", "user_id", user.ID, "error", err)
			RenderError(c, http.StatusInternalServerError, "Could not publish your post.")
		}
		return
	}
	utils.Sugar.Infow("post created", "post_id", post.ID, "user_id", user.ID)
	c.Redirect(http.StatusFound, "/posts")
}

type likeRequest struct {
	PostID uint `form:"post_id" json:"post_id"`
}

// Like answers with JSON for the posts page script.
func (h *PostHandler) Like(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req likeRequest
	if err := c.ShouldBind(&req); err != nil || req.PostID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "post_id is required"})
		return
	}

	likes, added, err := h.feed.AddLike(req.PostID, user.ID)
	if errors.Is(err, services.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "error": "post not found"})
		return
	}
	if err != nil {
		utils.Sugar.Errorw("like post", "post_id", req.PostID, "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "could not like post"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "likes": likes, "liked": added})
}

func (h *PostHandler) Comment(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, ok := parseID(c, "id")
	if !ok {
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	}

	_, err := h.feed.AddComment(id, user.ID, c.PostForm("content"))
	switch {
	case errors.Is(err, services.ErrEmptyContent):
		RenderError(c, http.StatusBadRequest, "A comment cannot be empty.")
		return
	case errors.Is(err, services.ErrPostNotFound):
		RenderError(c, http.StatusNotFound, "Post not found.")
		return
	case err != nil:
		utils.Sugar.Errorw("add comment", "post_id", id, "user_id", user.ID, "error", err)
		RenderError(c, http.StatusInternalServerError, "Could not save your comment.")
		return
	}
	c.Redirect(http.StatusFound, "/posts/"+strconv.FormatUint(uint64(id), 10))
}
