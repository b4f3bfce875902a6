package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kigurumi/api/internal/auth"
	"kigurumi/api/internal/cache"
	"kigurumi/api/internal/config"
	"kigurumi/api/internal/crawler"
	"kigurumi/api/internal/store"
	"kigurumi/api/internal/workflow"
)

type dataStore interface {
	Ping(ctx context.Context) error

	ListKigers(ctx context.Context) ([]store.Kiger, error)
	GetKiger(ctx context.Context, id string) (store.Kiger, error)
	ListKigerLinks(ctx context.Context, kigerID string) ([]store.KigerCharacterLink, error)
	ListCharacters(ctx context.Context) ([]store.Character, error)
	GetCharacter(ctx context.Context, id int64) (store.Character, error)
	ListMakers(ctx context.Context) ([]store.Maker, error)
	GetMaker(ctx context.Context, id int64) (store.Maker, error)

	ListPendingKigers(ctx context.Context) ([]store.PendingKiger, error)
	ListPendingCharacters(ctx context.Context) ([]store.PendingCharacter, error)
	ListPendingMakers(ctx context.Context) ([]store.PendingMaker, error)

	GetAdminByUsername(ctx context.Context, username string) (store.Admin, error)
	EnsureAdmin(ctx context.Context, username, hashedPassword string) error
}

type moderationEngine interface {
	SubmitKiger(ctx context.Context, draft workflow.KigerDraft) (store.PendingKiger, error)
	SubmitCharacter(ctx context.Context, draft store.CharacterDraft) (store.PendingCharacter, error)
	SubmitMaker(ctx context.Context, draft workflow.MakerDraft) (store.PendingMaker, error)
	ReviewKiger(ctx context.Context, pendingID, action string) (workflow.ReviewResult, error)
	ReviewCharacter(ctx context.Context, pendingID int64, action string) (workflow.ReviewResult, error)
	ReviewMaker(ctx context.Context, pendingID int64, action string) (workflow.ReviewResult, error)
	DirectUpdateKiger(ctx context.Context, id string, draft workflow.KigerDraft) (store.Kiger, []store.KigerCharacterLink, error)
	DirectUpdateCharacter(ctx context.Context, id int64, draft store.CharacterDraft) (store.Character, error)
	DirectUpdateMaker(ctx context.Context, id int64, draft workflow.MakerDraft) (store.Maker, error)
}

type responseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
	Stats(ctx context.Context) (cache.Stats, error)
	Ping(ctx context.Context) error
}

type tweetSource interface {
	FetchUser(ctx context.Context, username string) (crawler.TwitterUser, error)
	FetchTweet(ctx context.Context, username, tweetID string) (crawler.Tweet, error)
}

type characterExtractor interface {
	ExtractCharacter(ctx context.Context, tweet crawler.Tweet) (*store.CharacterDraft, error)
	ExtractFromImage(ctx context.Context, imageURL string) (*store.CharacterDraft, error)
}

type Service struct {
	store     dataStore
	engine    moderationEngine
	cache     responseCache
	twitter   tweetSource
	extractor characterExtractor
	jwtSecret []byte
	accessTTL time.Duration
}

func NewService(cfg config.Config, st dataStore, engine moderationEngine, respCache responseCache, twitter tweetSource, extractor characterExtractor) *Service {
	return &Service{
		store:     st,
		engine:    engine,
		cache:     respCache,
		twitter:   twitter,
		extractor: extractor,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: cfg.AccessTTL,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingCache(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

// Bootstrap creates the configured admin account if it does not exist yet.
// A blank password disables the bootstrap entirely.
func (s *Service) Bootstrap(ctx context.Context, username, password string) error {
	if password == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.EnsureAdmin(ctx, username, hash)
}

type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	admin, err := s.store.GetAdminByUsername(ctx, username)
	if isNoRows(err) {
		return LoginResult{}, auth.ErrBadCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("get admin: %w", err)
	}
	if err := auth.CheckPassword(admin.HashedPassword, password); err != nil {
		return LoginResult{}, err
	}

	token, err := auth.IssueToken(s.jwtSecret, admin.Username, s.accessTTL)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{AccessToken: token, TokenType: "bearer", Username: admin.Username}, nil
}

// AdminFromToken returns the admin username a bearer token names.
func (s *Service) AdminFromToken(token string) (string, error) {
	return auth.ParseToken(s.jwtSecret, token)
}

// cached runs build on a cache miss and stores the marshaled result.
func (s *Service) cached(ctx context.Context, key string, build func() (any, error)) (json.RawMessage, error) {
	if data, ok := s.cache.Get(ctx, key); ok {
		return data, nil
	}
	payload, err := build()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", key, err)
	}
	s.cache.Set(ctx, key, data)
	return data, nil
}

func (s *Service) ListKigers(ctx context.Context) (json.RawMessage, error) {
	return s.cached(ctx, workflow.CacheKeyKigers, func() (any, error) {
		items, err := s.store.ListKigers(ctx)
		if err != nil {
			return nil, err
		}
		views := []kigerView{}
		for _, item := range items {
			views = append(views, toKigerView(item))
		}
		return views, nil
	})
}

func (s *Service) GetKigerDetail(ctx context.Context, id string) (json.RawMessage, error) {
	return s.cached(ctx, workflow.CacheKeyKiger(id), func() (any, error) {
		kiger, err := s.store.GetKiger(ctx, id)
		if err != nil {
			return nil, err
		}
		links, err := s.store.ListKigerLinks(ctx, id)
		if err != nil {
			return nil, err
		}
		return toKigerDetailView(kiger, links), nil
	})
}

func (s *Service) ListCharacters(ctx context.Context) (json.RawMessage, error) {
	return s.cached(ctx, workflow.CacheKeyCharacters, func() (any, error) {
		items, err := s.store.ListCharacters(ctx)
		if err != nil {
			return nil, err
		}
		views := []characterView{}
		for _, item := range items {
			views = append(views, toCharacterView(item))
		}
		return views, nil
	})
}

func (s *Service) GetCharacter(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.cached(ctx, workflow.CacheKeyCharacter(id), func() (any, error) {
		item, err := s.store.GetCharacter(ctx, id)
		if err != nil {
			return nil, err
		}
		return toCharacterView(item), nil
	})
}

func (s *Service) ListMakers(ctx context.Context) (json.RawMessage, error) {
	return s.cached(ctx, workflow.CacheKeyMakers, func() (any, error) {
		items, err := s.store.ListMakers(ctx)
		if err != nil {
			return nil, err
		}
		views := []makerView{}
		for _, item := range items {
			views = append(views, toMakerView(item))
		}
		return views, nil
	})
}

func (s *Service) GetMaker(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.cached(ctx, workflow.CacheKeyMaker(id), func() (any, error) {
		item, err := s.store.GetMaker(ctx, id)
		if err != nil {
			return nil, err
		}
		return toMakerView(item), nil
	})
}

func (s *Service) ListPendingKigers(ctx context.Context) ([]pendingKigerView, error) {
	items, err := s.store.ListPendingKigers(ctx)
	if err != nil {
		return nil, err
	}
	views := []pendingKigerView{}
	for _, item := range items {
		views = append(views, toPendingKigerView(item))
	}
	return views, nil
}

func (s *Service) ListPendingCharacters(ctx context.Context) ([]pendingCharacterView, error) {
	items, err := s.store.ListPendingCharacters(ctx)
	if err != nil {
		return nil, err
	}
	views := []pendingCharacterView{}
	for _, item := range items {
		views = append(views, toPendingCharacterView(item))
	}
	return views, nil
}

func (s *Service) ListPendingMakers(ctx context.Context) ([]pendingMakerView, error) {
	items, err := s.store.ListPendingMakers(ctx)
	if err != nil {
		return nil, err
	}
	views := []pendingMakerView{}
	for _, item := range items {
		views = append(views, toPendingMakerView(item))
	}
	return views, nil
}

func (s *Service) CacheStats(ctx context.Context) (cache.Stats, error) {
	return s.cache.Stats(ctx)
}

// CrawlTwitterUser drafts a kiger profile from a public Twitter account.
func (s *Service) CrawlTwitterUser(ctx context.Context, username string) (map[string]any, error) {
	user, err := s.twitter.FetchUser(ctx, username)
	if err != nil {
		return nil, err
	}

	name := user.Name
	if name == "" {
		name = username
	}
	now := time.Now().UTC().Format(time.RFC3339)
	return map[string]any{
		"id":           username,
		"name":         name,
		"bio":          user.Description,
		"profileImage": user.ProfileImageURL,
		"position":     "",
		"isActive":     true,
		"socialMedia": map[string]any{
			"twitter": "https://twitter.com/" + username,
		},
		"Characters": []any{},
		"createdAt":  now,
		"updatedAt":  now,
	}, nil
}

type TweetCrawlResult struct {
	Character *store.CharacterDraft `json:"character"`
	Images    []string              `json:"images"`
}

// CrawlTwitterTweet identifies the character a tweet shows.
func (s *Service) CrawlTwitterTweet(ctx context.Context, username, tweetID string) (TweetCrawlResult, error) {
	tweet, err := s.twitter.FetchTweet(ctx, username, tweetID)
	if err != nil {
		return TweetCrawlResult{}, err
	}
	character, err := s.extractor.ExtractCharacter(ctx, tweet)
	if err != nil {
		return TweetCrawlResult{}, err
	}
	return TweetCrawlResult{Character: character, Images: tweet.Images()}, nil
}

type ImageCrawlResult struct {
	Success   bool                  `json:"success"`
	Character *store.CharacterDraft `json:"character"`
	Error     *string               `json:"error"`
}

// CrawlImage identifies the character a single image shows. Failures come
// back in-band so clients can retry with a better image.
func (s *Service) CrawlImage(ctx context.Context, imageURL string) ImageCrawlResult {
	character, err := s.extractor.ExtractFromImage(ctx, imageURL)
	if err != nil {
		message := err.Error()
		return ImageCrawlResult{Success: false, Error: &message}
	}
	if character == nil {
		message := "no character identified"
		return ImageCrawlResult{Success: false, Error: &message}
	}
	return ImageCrawlResult{Success: true, Character: character}
}
