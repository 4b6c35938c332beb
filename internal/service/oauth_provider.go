package service

//go:generate mockgen -source=oauth_provider.go -destination=oauth_provider_mock_test.go -package=service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vetmatch/identity/internal/config"
	"github.com/vetmatch/identity/internal/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/kakao"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	kakaoUserInfoURL  = "https://kapi.kakao.com/v2/user/me"
	naverUserInfoURL  = "https://openapi.naver.com/v1/nid/me"
)

var naverEndpoint = oauth2.Endpoint{
	AuthURL:   "https://nid.naver.com/oauth2.0/authorize",
	TokenURL:  "https://nid.naver.com/oauth2.0/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

var errMissingUserInfo = errors.New("missing required userinfo fields")

// SocialProfile is a provider identity normalised for reconciliation.
type SocialProfile struct {
	Provider     domain.Provider `json:"provider"`
	ProviderID   string          `json:"provider_id"`
	Email        string          `json:"email"`
	Name         string          `json:"name,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	BirthDate    *time.Time      `json:"birth_date,omitempty"`
	ProfileImage string          `json:"profile_image,omitempty"`
	Token        *oauth2.Token   `json:"-"`
}

type OAuthProvider interface {
	Name() domain.Provider
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*SocialProfile, error)
}

// OAuthProviders holds the enabled providers. A disabled provider is absent.
type OAuthProviders map[domain.Provider]OAuthProvider

func NewOAuthProviders(cfg *config.Config) OAuthProviders {
	out := OAuthProviders{}
	if cfg.AuthGoogleEnabled {
		out[domain.ProviderGoogle] = NewGoogleOAuthProvider(cfg)
	}
	if cfg.AuthKakaoEnabled {
		out[domain.ProviderKakao] = NewKakaoOAuthProvider(cfg)
	}
	if cfg.AuthNaverEnabled {
		out[domain.ProviderNaver] = NewNaverOAuthProvider(cfg)
	}
	return out
}

func (p OAuthProviders) Get(name domain.Provider) (OAuthProvider, error) {
	provider, ok := p[name]
	if !ok {
		return nil, ErrProviderNotEnabled
	}
	return provider, nil
}

type baseProvider struct {
	name        domain.Provider
	cfg         *oauth2.Config
	userInfoURL string
}

func (p *baseProvider) Name() domain.Provider { return p.name }

func (p *baseProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

func (p *baseProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.cfg.Exchange(ctx, code)
}

func (p *baseProvider) getJSON(ctx context.Context, token *oauth2.Token, out any) error {
	client := p.cfg.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("userinfo status: %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out)
}

type GoogleOAuthProvider struct{ baseProvider }

func NewGoogleOAuthProvider(cfg *config.Config) *GoogleOAuthProvider {
	return &GoogleOAuthProvider{baseProvider{
		name: domain.ProviderGoogle,
		cfg: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}}
}

func (p *GoogleOAuthProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (p *GoogleOAuthProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*SocialProfile, error) {
	var body struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := p.getJSON(ctx, token, &body); err != nil {
		return nil, err
	}
	if body.Sub == "" {
		return nil, errMissingUserInfo
	}
	if body.Email != "" && !body.EmailVerified {
		return nil, fmt.Errorf("%w: google email not verified", ErrProviderEmailMissing)
	}
	return newSocialProfile(p.name, body.Sub, body.Email, body.Name, "", nil, body.Picture)
}

type KakaoOAuthProvider struct{ baseProvider }

func NewKakaoOAuthProvider(cfg *config.Config) *KakaoOAuthProvider {
	return &KakaoOAuthProvider{baseProvider{
		name: domain.ProviderKakao,
		cfg: &oauth2.Config{
			ClientID:     cfg.KakaoClientID,
			ClientSecret: cfg.KakaoClientSecret,
			RedirectURL:  cfg.KakaoRedirectURL,
			Scopes:       []string{"account_email", "profile_nickname", "profile_image", "name", "phone_number", "birthday", "birthyear"},
			Endpoint:     kakao.Endpoint,
		},
		userInfoURL: kakaoUserInfoURL,
	}}
}

func (p *KakaoOAuthProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*SocialProfile, error) {
	var body struct {
		ID      int64 `json:"id"`
		Account struct {
			Email           string `json:"email"`
			IsEmailVerified *bool  `json:"is_email_verified"`
			Name            string `json:"name"`
			PhoneNumber     string `json:"phone_number"`
			BirthYear       string `json:"birthyear"`
			Birthday        string `json:"birthday"`
			Profile         struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := p.getJSON(ctx, token, &body); err != nil {
		return nil, err
	}
	if body.ID == 0 {
		return nil, errMissingUserInfo
	}
	acct := body.Account
	if acct.IsEmailVerified != nil && !*acct.IsEmailVerified {
		return nil, fmt.Errorf("%w: kakao email not verified", ErrProviderEmailMissing)
	}
	name := acct.Name
	if name == "" {
		name = acct.Profile.Nickname
	}
	return newSocialProfile(p.name, strconv.FormatInt(body.ID, 10), acct.Email, name,
		acct.PhoneNumber, parseBirthDate(acct.BirthYear, acct.Birthday), acct.Profile.ProfileImageURL)
}

type NaverOAuthProvider struct{ baseProvider }

func NewNaverOAuthProvider(cfg *config.Config) *NaverOAuthProvider {
	return &NaverOAuthProvider{baseProvider{
		name: domain.ProviderNaver,
		cfg: &oauth2.Config{
			ClientID:     cfg.NaverClientID,
			ClientSecret: cfg.NaverClientSecret,
			RedirectURL:  cfg.NaverRedirectURL,
			Endpoint:     naverEndpoint,
		},
		userInfoURL: naverUserInfoURL,
	}}
}

func (p *NaverOAuthProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*SocialProfile, error) {
	var body struct {
		ResultCode string `json:"resultcode"`
		Response   struct {
			ID           string `json:"id"`
			Email        string `json:"email"`
			Name         string `json:"name"`
			Mobile       string `json:"mobile"`
			MobileE164   string `json:"mobile_e164"`
			BirthYear    string `json:"birthyear"`
			Birthday     string `json:"birthday"`
			ProfileImage string `json:"profile_image"`
		} `json:"response"`
	}
	if err := p.getJSON(ctx, token, &body); err != nil {
		return nil, err
	}
	r := body.Response
	if body.ResultCode != "00" || r.ID == "" {
		return nil, errMissingUserInfo
	}
	phone := r.MobileE164
	if phone == "" {
		phone = r.Mobile
	}
	return newSocialProfile(p.name, r.ID, r.Email, r.Name, phone, parseBirthDate(r.BirthYear, r.Birthday), r.ProfileImage)
}

func newSocialProfile(provider domain.Provider, id, email, name, phone string, birth *time.Time, image string) (*SocialProfile, error) {
	normalized, ok := NormalizeEmail(email)
	if !ok {
		return nil, ErrProviderEmailMissing
	}
	p := &SocialProfile{
		Provider:     provider,
		ProviderID:   id,
		Email:        normalized,
		Name:         strings.TrimSpace(name),
		BirthDate:    birth,
		ProfileImage: image,
	}
	if digits, ok := NormalizePhone(phone); ok {
		p.Phone = digits
	}
	return p, nil
}

// parseBirthDate combines a four digit year with an MMDD or MM-DD day.
func parseBirthDate(year, day string) *time.Time {
	day = strings.ReplaceAll(day, "-", "")
	if len(year) != 4 || len(day) != 4 {
		return nil
	}
	t, err := time.Parse("20060102", year+day)
	if err != nil {
		return nil
	}
	return &t
}
