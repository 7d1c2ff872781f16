package larkbot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// Messenger is the outbound IM surface the gateway needs.
type Messenger interface {
	SendText(ctx context.Context, openID, text string) error
	// UploadFile uploads a local file and returns its file key.
	UploadFile(ctx context.Context, path, name string) (string, error)
	SendFile(ctx context.Context, openID, fileKey string) error
}

type sdkMessenger struct {
	client *lark.Client
}

// NewSDKMessenger sends through the Lark Open API.
func NewSDKMessenger(client *lark.Client) Messenger {
	return &sdkMessenger{client: client}
}

func (m *sdkMessenger) send(ctx context.Context, openID, msgType, content string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("open_id").
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(openID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.client.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("lark send: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("lark send error: code=%d msg=%s", resp.Code, resp.Msg)
	}
	return nil
}

func (m *sdkMessenger) SendText(ctx context.Context, openID, text string) error {
	return m.send(ctx, openID, "text", textContent(text))
}

func (m *sdkMessenger) SendFile(ctx context.Context, openID, fileKey string) error {
	return m.send(ctx, openID, "file", fileContent(fileKey))
}

func (m *sdkMessenger) UploadFile(ctx context.Context, path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	req := larkim.NewCreateFileReqBuilder().
		Body(larkim.NewCreateFileReqBodyBuilder().
			FileType(fileType(name)).
			FileName(name).
			File(f).
			Build()).
		Build()

	resp, err := m.client.Im.File.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("lark file upload: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("lark file upload error: code=%d msg=%s", resp.Code, resp.Msg)
	}
	if resp.Data == nil || resp.Data.FileKey == nil {
		return "", fmt.Errorf("lark file upload: empty file key")
	}
	return *resp.Data.FileKey, nil
}

func textContent(text string) string {
	payload, _ := json.Marshal(map[string]string{"text": text})
	return string(payload)
}

func fileContent(fileKey string) string {
	payload, _ := json.Marshal(map[string]string{"file_key": fileKey})
	return string(payload)
}
