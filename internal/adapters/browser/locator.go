package browser

import (
	"fmt"
	"strings"

	"github.com/bnema/xserver-renew/internal/domain"
	"github.com/chromedp/chromedp"
)

// selector translates a locator into a chromedp selector and query option.
func selector(locator domain.Locator) (string, chromedp.QueryOption, error) {
	switch locator.Kind {
	case domain.LocatorCSS:
		return locator.Value, chromedp.ByQuery, nil
	case domain.LocatorXPath:
		return locator.Value, chromedp.BySearch, nil
	case domain.LocatorText:
		return textXPath(locator.Value), chromedp.BySearch, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported locator kind %q", domain.ErrConfiguration, locator.Kind)
	}
}

// textXPath matches clickable elements whose visible text or value contains text.
func textXPath(text string) string {
	lit := xpathLiteral(text)

	return strings.Join([]string{
		fmt.Sprintf("//a[contains(normalize-space(.), %s)]", lit),
		fmt.Sprintf("//button[contains(normalize-space(.), %s)]", lit),
		fmt.Sprintf("//input[contains(@value, %s)]", lit),
		fmt.Sprintf("//*[@role='button'][contains(normalize-space(.), %s)]", lit),
	}, " | ")
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}

	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if part != "" {
			quoted = append(quoted, `"`+part+`"`)
		}
	}

	return "concat(" + strings.Join(quoted, ", ") + ")"
}
