package llm

// Canned development-mode answers, kept in Korean like the placeholder
// copy the frontend was written against.
var mockAnswers = []string{
	"안녕하세요! 이것은 개발 모드의 모의 응답입니다.",
	"요청하신 내용을 처리했습니다. 실제 모델 응답이 아닌 테스트 응답입니다.",
	"프롬프트를 잘 받았습니다. LLM 서버가 연결되면 실제 응답이 표시됩니다.",
	"이 응답은 자동으로 생성된 예시 텍스트입니다.",
	"개발 환경에서 생성된 임시 응답입니다. 엔드포인트 설정을 확인해 주세요.",
}

const promptEchoLimit = 100

// mockResponse synthesizes a development-mode answer: one canned line, a
// truncated echo of the prompt, and the underlying error.
func (c *Client) mockResponse(prompt string, callErr error) string {
	c.mu.Lock()
	answer := mockAnswers[c.rng.Intn(len(mockAnswers))]
	c.mu.Unlock()

	echo := prompt
	if runes := []rune(echo); len(runes) > promptEchoLimit {
		echo = string(runes[:promptEchoLimit]) + "..."
	}

	return answer + "\n\n[프롬프트: " + echo + "]\n[오류: " + callErr.Error() + "]"
}
