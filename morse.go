package flashcw

import "strings"

// MorseCodeMap 国际摩尔斯电码，只包含字母和数字
var MorseCodeMap = map[string]string{
	// 字母
	".-": "A", "-...": "B", "-.-.": "C", "-..": "D", ".": "E",
	"..-.": "F", "--.": "G", "....": "H", "..": "I", ".---": "J",
	"-.-": "K", ".-..": "L", "--": "M", "-.": "N", "---": "O",
	".--.": "P", "--.-": "Q", ".-.": "R", "...": "S", "-": "T",
	"..-": "U", "...-": "V", ".--": "W", "-..-": "X", "-.--": "Y",
	"--..": "Z",
	// 数字
	".----": "1", "..---": "2", "...--": "3", "....-": "4", ".....": "5",
	"-....": "6", "--...": "7", "---..": "8", "----.": "9", "-----": "0",
}

// 反向表，生成信号时使用
var charToPattern = func() map[rune]string {
	m := make(map[rune]string, len(MorseCodeMap))
	for pattern, char := range MorseCodeMap {
		m[rune(char[0])] = pattern
	}
	return m
}()

// LookupPattern 点划序列 -> 字符
func LookupPattern(pattern string) (string, bool) {
	char, ok := MorseCodeMap[pattern]
	return char, ok
}

// EncodeRune 字符 -> 点划序列，大小写不敏感
func EncodeRune(r rune) (string, bool) {
	if r >= 'a' && r <= 'z' {
		r -= 'a' - 'A'
	}
	pattern, ok := charToPattern[r]
	return pattern, ok
}

// NormalizeText 把文本整理成可以发送的形式：
// 大写，去掉表外字符，单词之间只保留一个空格
func NormalizeText(text string) string {
	var words []string
	for _, word := range strings.Fields(text) {
		var sb strings.Builder
		for _, r := range word {
			if _, ok := EncodeRune(r); ok {
				if r >= 'a' && r <= 'z' {
					r -= 'a' - 'A'
				}
				sb.WriteRune(r)
			}
		}
		if sb.Len() > 0 {
			words = append(words, sb.String())
		}
	}
	return strings.Join(words, " ")
}
