package prompt

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
)

const (
	LocaleEN   = "en"
	LocaleZhTW = "zh-TW"
)

// ForProfile builds the user prompt sent next to the photo.
func ForProfile(locale string, p reading.Profile) string {
	if strings.EqualFold(locale, LocaleZhTW) {
		gender := "女"
		if p.Gender == reading.GenderMale {
			gender = "男"
		}
		return fmt.Sprintf(`你是精通古今中外手相學、心理學與神祕學的頂級大師。
請分析這張 %d 歲 %s 性的手相。
要求：
1. 給予非常有深度、富有人文關懷的解析。
2. points 欄位提供 0.0 到 1.0 的座標，對應主要掌線的位置（生命線、智慧線、感情線）。
3. validation 欄位：若照片中不是手掌，isHand 設為 false；若手掌模糊或被遮擋，isClear 設為 false，並在 reason 說明。
4. 回傳完整且結構嚴密的 JSON。`, p.Age, gender)
	}

	return fmt.Sprintf(`You are a master of palmistry from every tradition, as well as psychology and mysticism.
Read the palm in this photo of a %d-year-old %s.
Requirements:
1. Give a deep, humane interpretation.
2. The points fields hold 0.0 to 1.0 coordinates (x across, y down) tracing the major lines (life, head, heart, and fate when visible).
3. In validation, set isHand to false when the photo does not show a palm, and isClear to false when the palm is blurred or covered; explain in reason.
4. Return complete, well-structured JSON only.`, p.Age, p.Gender)
}

func str() jsonschema.Definition { return jsonschema.Definition{Type: jsonschema.String} }

func strArray() jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}}
}

func object(props map[string]jsonschema.Definition) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Object, Properties: props}
}

func arrayOf(item jsonschema.Definition) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Array, Items: &item}
}

func line() jsonschema.Definition {
	return object(map[string]jsonschema.Definition{
		"observation": str(),
		"meaning":     str(),
		"points": arrayOf(object(map[string]jsonschema.Definition{
			"x": {Type: jsonschema.Number},
			"y": {Type: jsonschema.Number},
		})),
	})
}

// Schema is the declared response schema for a palm reading.
func Schema() jsonschema.Definition {
	return object(map[string]jsonschema.Definition{
		"overall": str(),
		"archetype": object(map[string]jsonschema.Definition{
			"name":        str(),
			"description": str(),
		}),
		"element": object(map[string]jsonschema.Definition{
			"type":        str(),
			"description": str(),
			"traits":      strArray(),
		}),
		"heartLine": line(),
		"headLine":  line(),
		"lifeLine":  line(),
		"fateLine":  line(),
		"mounts": arrayOf(object(map[string]jsonschema.Definition{
			"name":    str(),
			"status":  str(),
			"meaning": str(),
		})),
		"talents": arrayOf(object(map[string]jsonschema.Definition{
			"field":       str(),
			"score":       {Type: jsonschema.Number},
			"description": str(),
		})),
		"lifeStages": arrayOf(object(map[string]jsonschema.Definition{
			"period":  str(),
			"insight": str(),
		})),
		"specialMarkings": strArray(),
		"summaryAdvice":   str(),
		"validation": object(map[string]jsonschema.Definition{
			"isHand":  {Type: jsonschema.Boolean},
			"isClear": {Type: jsonschema.Boolean},
			"reason":  str(),
		}),
	})
}

// ExtractJSON trims code fences and any chatter around the outermost JSON object.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
