// Package plate contém o pós-processamento de texto de placas lido por OCR.
package plate

import (
	"strings"
	"unicode"
)

// Regiões suportadas. Qualquer outro valor cai em "tw".
const (
	RegionTaiwan   = "tw"
	RegionHongKong = "hk"
)

// Normalize aplica as regras de pós-processamento regionais sobre o texto
// cru do OCR e retorna a placa normalizada. Retorna "" quando o texto é
// rejeitado (ex.: comprimento inválido) — o chamador descarta nesse caso.
//
// Pipeline:
//  1. uppercase
//  2. remove quebras de linha, espaços e hífens
//  3. regra regional (tw ou hk)
//  4. símbolos parecidos com dígitos: "|" -> "1", "&" -> "8"
//  5. remove pontuação restante
//  6. variantes com diacrítico viram a letra base ('Å' -> 'A', etc.)
func Normalize(raw, region string) string {
	text := strings.ToUpper(raw)
	text = blankReplacer.Replace(text)

	var result string
	switch region {
	case RegionHongKong:
		result = normalizeHongKong(text)
	default:
		result = normalizeTaiwan(text)
	}

	result = symbolReplacer.Replace(result)
	result = stripPunctuation(result)
	return foldVariants(result)
}

// Regras de Taiwan: 4 a 7 caracteres. Com exatamente 7, os três primeiros
// formam o bloco de letras e os quatro últimos o bloco de dígitos; cada
// bloco recebe as trocas de caracteres ambíguos no sentido certo.
func normalizeTaiwan(text string) string {
	runes := []rune(text)
	if len(runes) < 4 || len(runes) > 7 {
		return ""
	}
	if len(runes) != 7 {
		return text
	}

	prefix := taiwanLetterBlock.Replace(string(runes[:3]))
	suffix := taiwanDigitBlock.Replace(string(runes[3:]))
	return prefix + suffix
}

// Regras de Hong Kong: 4 a 7 caracteres; as letras 'I', 'O' e 'Q' não
// existem em placas de lá, então viram os dígitos equivalentes.
func normalizeHongKong(text string) string {
	runes := []rune(text)
	if len(runes) < 4 || len(runes) > 7 {
		return ""
	}
	return hongKongReplacer.Replace(text)
}

var (
	blankReplacer  = strings.NewReplacer("\n", "", " ", "", "-", "")
	symbolReplacer = strings.NewReplacer("|", "1", "&", "8")

	taiwanLetterBlock = strings.NewReplacer(
		"0", "Q", "5", "S", "8", "B", "1", "I", "2", "Z",
	)
	taiwanDigitBlock = strings.NewReplacer(
		"O", "0", "S", "5", "B", "8", "I", "1", "Z", "2", "J", "1",
	)
	hongKongReplacer = strings.NewReplacer(
		"I", "1", "O", "0", "Q", "0",
	)
)

func stripPunctuation(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func foldVariants(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if mapped, ok := variantMap[r]; ok {
			b.WriteString(mapped)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Variantes de alfabeto que o OCR costuma devolver no lugar das letras base.
var variantMap = map[rune]string{
	'Å': "A", 'å': "a",
	'Ä': "A", 'ä': "a",
	'Ö': "O", 'ö': "o",
	'Ü': "U", 'ü': "u",
	'Ñ': "N", 'ñ': "n",
	'Ç': "C", 'ç': "c",
	'É': "E", 'é': "e",
	'Í': "I", 'í': "i",
	'Ó': "O", 'ó': "o",
	'Ú': "U", 'ú': "u",
	'À': "A", 'à': "a",
	'Â': "A", 'â': "a",
	'Æ': "AE", 'æ': "ae",
	'Ê': "E", 'ê': "e",
	'È': "E", 'è': "e",
	'Ì': "I", 'ì': "i",
	'Î': "I", 'î': "i",
	'Ò': "O", 'ò': "o",
	'Ô': "O", 'ô': "o",
	'Õ': "O", 'õ': "o",
	'Ù': "U", 'ù': "u",
	'Û': "U", 'û': "u",
	'Ý': "Y", 'ý': "y", 'Ÿ': "Y", 'ÿ': "y",
	'Š': "S", 'š': "s",
	'Ž': "Z", 'ž': "z",
	'Þ': "Th", 'þ': "th",
	'Đ': "D", 'đ': "d",
	'Ł': "L", 'ł': "l",
	'Ň': "N", 'ň': "n",
	'Ō': "O", 'ō': "o",
	'Ŕ': "R", 'ŕ': "r",
	'Ť': "T", 'ť': "t",
	'Ź': "Z", 'ź': "z",
}
