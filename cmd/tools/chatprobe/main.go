package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/support-chat/backend/internal/config"
	"github.com/zhouzirui/support-chat/backend/internal/model/chat"
	"github.com/zhouzirui/support-chat/backend/internal/model/profile"
	"github.com/zhouzirui/support-chat/backend/internal/service/inference"
	"github.com/zhouzirui/support-chat/backend/internal/service/widget"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	text := flag.String("text", "", "要发送的消息")
	profileID := flag.String("profile", cfg.Widget.DefaultProfile, "助手档案 ID")
	minimized := flag.Bool("minimized", false, "在等待回复时最小化窗口")
	initTimeout := flag.Duration("init-timeout", 30*time.Second, "模块初始化等待时间")
	flag.Parse()

	if strings.TrimSpace(*text) == "" {
		flag.Usage()
		log.Fatal("请通过 -text 指定消息内容")
	}

	profiles := profile.NewMemoryStore(profile.Seed())
	assistant, ok := profiles.FindByID(*profileID)
	if !ok {
		log.Fatalf("未知的档案: %s", *profileID)
	}

	ctx := context.Background()
	loader := inference.NewInitializer(inference.NewChainModule(assistant.SystemPrompt, cfg.AI.NewChatModel))
	loader.Start(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, *initTimeout)
	if err := loader.Wait(waitCtx); err != nil {
		log.Printf("[WARN] 模块未就绪: %v", err)
	}
	cancel()

	widgets := widget.NewService(profiles, inference.NewClient(loader, cfg.Widget.Credential), widget.Config{
		ThinkingText: cfg.Widget.ThinkingText,
	})
	session, err := widgets.CreateSession(ctx, assistant.ID)
	if err != nil {
		log.Fatalf("创建会话失败: %v", err)
	}

	session.ToggleOpen()
	reply, err := session.Send(ctx, *text)
	if err != nil {
		log.Fatalf("发送失败: %v", err)
	}
	if *minimized {
		session.ToggleMinimize()
	}

	started := time.Now()
	<-reply

	snapshot := session.Snapshot()
	printTranscript(assistant, snapshot)
	fmt.Printf("\nvisibility=%s badge=%t elapsed=%s\n", snapshot.Visibility, snapshot.Notification, time.Since(started).Round(time.Millisecond))

	for _, msg := range snapshot.Messages {
		if msg.Error {
			os.Exit(1)
		}
	}
}

func printTranscript(assistant profile.Profile, snapshot chat.Session) {
	fmt.Printf("== %s (%s)\n", assistant.Title, snapshot.ID)
	for _, msg := range snapshot.Messages {
		who := "U"
		if msg.Sender == chat.SenderAgent {
			who = assistant.Avatar
		}
		marker := ""
		if msg.Error {
			marker = " [error]"
		}
		fmt.Printf("[%s] %-2s %s%s\n", msg.Clock(), who, msg.Text, marker)
	}
}
