package config

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ErrInvalidColor 无法识别的颜色字符串
var ErrInvalidColor = errors.New("invalid color")

// ParseColor 解析颜色字符串
//
// 支持 "#rrggbb"、"#rrggbbaa" 以及 SVG 颜色名（如 "peachpuff"，不区分大小写）。
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty color: %w", ErrInvalidColor)
	}

	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if len(hex) != 6 && len(hex) != 8 {
			return nil, fmt.Errorf("%q: want #rrggbb or #rrggbbaa: %w", s, ErrInvalidColor)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrInvalidColor)
		}
		if len(hex) == 6 {
			v = v<<8 | 0xff
		}
		// 配置里写的是非预乘颜色
		return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
	}

	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%q: unknown color name: %w", s, ErrInvalidColor)
}

// ParseColorOr 同 ParseColor，失败时返回 fallback
func ParseColorOr(s string, fallback color.Color) color.Color {
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}
