package feishu

import (
	"context"
	"encoding/json"
	"fmt"
)

// SendCard 向群聊发送消息卡片
func (c *Client) SendCard(ctx context.Context, chatID string, card InteractiveCard) error {
	cardBytes, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("序列化卡片内容失败: %w", err)
	}

	reqBody := map[string]interface{}{
		"receive_id_type": "chat_id",
		"receive_id":      chatID,
		"msg_type":        "interactive",
		"content":         string(cardBytes),
	}

	var resp SendMessageResponse
	if err := c.doRequest(ctx, "POST",
		"/open-apis/im/v1/messages?receive_id_type=chat_id", reqBody, &resp); err != nil {
		return fmt.Errorf("发送消息卡片失败: %w", err)
	}

	return nil
}

// 卡片标题颜色按告警类型区分
var alertTemplates = map[string]struct {
	title    string
	template string
}{
	"CONFLICT": {"⚠️ 排产容量冲突", "red"},
	"READY":    {"🔧 工序就绪待开工", "blue"},
	"DELAY":    {"⏰ 工作单延期提醒", "orange"},
}

// NewWorkshopAlertCard 创建车间告警通知卡片。
// alertType取通知类型（CONFLICT/READY/DELAY），未知类型用默认样式。
func NewWorkshopAlertCard(alertType, message, entityRef string) InteractiveCard {
	tpl, ok := alertTemplates[alertType]
	if !ok {
		tpl.title = "📢 车间通知"
		tpl.template = "grey"
	}

	elements := []CardElement{
		{
			Tag:  "div",
			Text: &CardText{Tag: "lark_md", Content: message},
		},
	}
	if entityRef != "" {
		elements = append(elements, CardElement{
			Tag: "div",
			Fields: []CardField{
				{IsShort: true, Text: CardText{Tag: "lark_md", Content: fmt.Sprintf("**关联单据**\n%s", entityRef)}},
			},
		})
	}

	return InteractiveCard{
		Config: &CardConfig{WideScreenMode: true},
		Header: &CardHeader{
			Title:    CardText{Tag: "plain_text", Content: tpl.title},
			Template: tpl.template,
		},
		Elements: elements,
	}
}
