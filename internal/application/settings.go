package application

import (
	"time"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/bnema/xserver-renew/internal/ports"
)

type Settings struct {
	Site     SiteSettings
	Timing   TimingSettings
	Workflow WorkflowSettings
	Browser  ports.BrowserOptions
	// ArtifactDir receives failure screenshots; empty disables them.
	ArtifactDir string
	// Success overrides the marker based success check when set.
	Success SuccessPredicate
}

type SiteSettings struct {
	LoginURL        string
	LoginURLMarker  string
	RequireServerID bool

	LoginIDField  domain.Locator
	ServerIDField domain.Locator
	PasswordField domain.Locator
	SubmitButton  domain.Locator

	AuthErrorLocator   domain.Locator
	AuthErrorMarkers   []string
	ManageLocators     []domain.Locator
	ServiceIndexMarker string

	EntryLocators   []domain.Locator
	ConfirmLocators []domain.Locator

	SuccessURLFragments []string
	SuccessTextMarkers  []string
	ErrorLocator        domain.Locator
}

type TimingSettings struct {
	ElementTimeout    time.Duration
	NavigationTimeout time.Duration
	LocatorTimeout    time.Duration
	EntrySettle       time.Duration
	StepSettle        time.Duration
	StaleRetryPause   time.Duration
	AccountDelay      time.Duration
}

type WorkflowSettings struct {
	MaxConfirmIterations int
	StaleRetries         int
	ErrorTextLimit       int
}

// DefaultSettings targets the XServer for Game free plan panel.
func DefaultSettings() Settings {
	return Settings{
		Site: SiteSettings{
			LoginURL:        "https://secure.xserver.ne.jp/xapanel/login/xmgame/",
			LoginURLMarker:  "login",
			RequireServerID: true,

			LoginIDField:  domain.CSS(`input[name="memberid"]`),
			ServerIDField: domain.CSS(`input[name="server_identify"]`),
			PasswordField: domain.CSS(`input[name="user_password"]`),
			SubmitButton:  domain.CSS(`input[name="action_user_login"], button[type="submit"]`),

			AuthErrorLocator: domain.CSS(`.errorMessage, .error-message, .alert-danger`),
			AuthErrorMarkers: []string{
				"ログインIDまたはパスワードが正しくありません",
				"正しくありません",
				"ログインできません",
			},
			ManageLocators: []domain.Locator{
				domain.Text("ゲーム管理"),
				domain.CSS(`a[href*="xmgame/game/index"]`),
			},
			ServiceIndexMarker: "xmgame/game/index",

			EntryLocators: []domain.Locator{
				domain.Text("アップグレード・期限延長"),
				domain.CSS(`a[href*="freeplan"][href*="extend"]`),
				domain.CSS(`a[href*="extend"]`),
				domain.Text("期限延長"),
			},
			ConfirmLocators: []domain.Locator{
				domain.Text("期限を延長する"),
				domain.Text("確認画面に進む"),
				domain.Text("次へ"),
				domain.Text("延長する"),
				domain.Text("完了"),
			},

			SuccessURLFragments: []string{"/extend/do", "/complete"},
			SuccessTextMarkers: []string{
				"期限を延長しました",
				"延長が完了しました",
				"更新が完了しました",
			},
			ErrorLocator: domain.CSS(`.errorMessage, .error-message, .alert-danger, .error`),
		},
		Timing: TimingSettings{
			ElementTimeout:    15 * time.Second,
			NavigationTimeout: 20 * time.Second,
			LocatorTimeout:    10 * time.Second,
			EntrySettle:       5 * time.Second,
			StepSettle:        3 * time.Second,
			StaleRetryPause:   time.Second,
			AccountDelay:      10 * time.Second,
		},
		Workflow: WorkflowSettings{
			MaxConfirmIterations: 3,
			StaleRetries:         3,
			ErrorTextLimit:       200,
		},
		Browser: ports.BrowserOptions{
			Headless:     true,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		ArtifactDir: ".",
	}
}

func (s Settings) successPredicate() SuccessPredicate {
	if s.Success != nil {
		return s.Success
	}

	return MarkerPredicate(s.Site.SuccessURLFragments, s.Site.SuccessTextMarkers)
}
