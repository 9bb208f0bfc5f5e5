package review

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
)

// Color interface defines how to colorize text
type Color interface {
	FgString(text string) string
	GetFgColor() color.Attribute
}

// ColorWrapper wraps fatih/color functionality
type ColorWrapper struct {
	colorFunc func(...interface{}) string
	colorAttr color.Attribute
	isRGB     bool
	r, g, b   uint8
}

// FgString returns a string with the color applied
func (c ColorWrapper) FgString(text string) string {
	if c.isRGB {
		return fmt.Sprintf("\x1b[38;2;%d;%d;%dm%s\x1b[0m", c.r, c.g, c.b, text)
	}
	return c.colorFunc(text)
}

// GetFgColor returns the color.Attribute for this color
func (c ColorWrapper) GetFgColor() color.Attribute {
	return c.colorAttr
}

var rgbRegex = regexp.MustCompile(`^#([a-fA-F0-9]{2})([a-fA-F0-9]{2})([a-fA-F0-9]{2})$`)

var (
	colorCache = make(map[string]Color, 16)
	colorMutex sync.RWMutex
)

func predefined(attr color.Attribute) ColorWrapper {
	return ColorWrapper{colorFunc: color.New(attr).SprintFunc(), colorAttr: attr}
}

var predefinedColors = map[string]ColorWrapper{
	"black":   predefined(color.FgBlack),
	"red":     predefined(color.FgRed),
	"green":   predefined(color.FgGreen),
	"yellow":  predefined(color.FgYellow),
	"blue":    predefined(color.FgBlue),
	"magenta": predefined(color.FgMagenta),
	"cyan":    predefined(color.FgCyan),
	"white":   predefined(color.FgWhite),
	"default": predefined(color.Reset),
}

// ParseColor resolves a color name or a #rrggbb value.
func ParseColor(name string) (Color, error) {
	colorMutex.RLock()
	if cached, exists := colorCache[name]; exists {
		colorMutex.RUnlock()
		return cached, nil
	}
	colorMutex.RUnlock()

	var result Color
	if m := rgbRegex.FindStringSubmatch(name); m != nil {
		r, _ := strconv.ParseUint(m[1], 16, 8)
		g, _ := strconv.ParseUint(m[2], 16, 8)
		b, _ := strconv.ParseUint(m[3], 16, 8)
		result = ColorWrapper{
			colorFunc: color.New(color.FgWhite).SprintFunc(),
			colorAttr: color.FgWhite,
			isRGB:     true,
			r:         uint8(r),
			g:         uint8(g),
			b:         uint8(b),
		}
	} else if p, exists := predefinedColors[strings.ToLower(name)]; exists {
		result = p
	} else {
		return nil, fmt.Errorf("unknown color: %s", name)
	}

	colorMutex.Lock()
	colorCache[name] = result
	colorMutex.Unlock()
	return result, nil
}

// GetColor is like ParseColor but panics on an unknown color. Use it for
// names that were already validated.
func GetColor(name string) Color {
	c, err := ParseColor(name)
	if err != nil {
		panic(err)
	}
	return c
}

var tcellColors = map[color.Attribute]tcell.Color{
	color.FgBlack:   tcell.ColorBlack,
	color.FgRed:     tcell.ColorRed,
	color.FgGreen:   tcell.ColorGreen,
	color.FgYellow:  tcell.ColorYellow,
	color.FgBlue:    tcell.ColorBlue,
	color.FgMagenta: tcell.ColorFuchsia,
	color.FgCyan:    tcell.ColorAqua,
	color.FgWhite:   tcell.ColorWhite,
	color.Reset:     tcell.ColorDefault,
}

// colorToTcell converts a Color to tcell.Color
func colorToTcell(c Color) tcell.Color {
	if cw, ok := c.(ColorWrapper); ok && cw.isRGB {
		return tcell.NewRGBColor(int32(cw.r), int32(cw.g), int32(cw.b))
	}
	if tc, exists := tcellColors[c.GetFgColor()]; exists {
		return tc
	}
	return tcell.ColorDefault
}
