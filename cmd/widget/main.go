package main

import (
	"bufio"
	"flag"
	"fmt"
	log "log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/widget"
)

// 终端版聊天挂件：登录后驱动 Reconciler，验证实时收发链路
func main() {
	var (
		baseURL  = flag.String("server", "http://127.0.0.1:8080", "服务端地址")
		email    = flag.String("email", "", "登录邮箱")
		password = flag.String("password", "", "登录密码")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: widget -email <email> -password <password> [-server <url>]")
		os.Exit(1)
	}

	token, identity, err := login(*baseURL, *email, *password)
	if err != nil {
		log.Error("登录失败", "err", err)
		os.Exit(1)
	}
	fmt.Printf("已登录: %s <%s>\n", identity.Nickname, identity.Email)

	feed, err := widget.NewWSFeed(*baseURL, token)
	if err != nil {
		log.Error("初始化推送通道失败", "err", err)
		os.Exit(1)
	}
	store := widget.NewRemoteStore(*baseURL, token)

	r := widget.NewReconciler(store, feed)
	r.SetNotify(func() {
		// 简单起见只刷新未读角标，消息明细由 /open 主动打印
		fmt.Printf("\r[未读 %d] > ", r.UnreadCount())
	})

	if err := r.Initialize(identity); err != nil {
		log.Error("初始化失败", "err", err)
		os.Exit(1)
	}
	defer r.Teardown()

	fmt.Println("命令: /list 会话列表  /open [id] 打开会话  /quit 退出  其他输入直接发送")
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("[未读 %d] > ", r.UnreadCount())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return
		case line == "/list":
			printConversations(r)
		case strings.HasPrefix(line, "/open"):
			var id uint64
			if fields := strings.Fields(line); len(fields) > 1 {
				id, _ = strconv.ParseUint(fields[1], 10, 64)
			}
			if err := r.OpenConversation(id); err != nil {
				fmt.Println("打开会话失败:", err)
				break
			}
			printMessages(r)
		case line != "":
			if err := r.SendMessage(line); err != nil {
				fmt.Println("发送失败:", err)
			}
		}
		fmt.Printf("[未读 %d] > ", r.UnreadCount())
	}
}

func printConversations(r *widget.Reconciler) {
	convs := r.Conversations()
	if len(convs) == 0 {
		fmt.Println("(暂无会话)")
		return
	}
	for _, c := range convs {
		fmt.Printf("#%d %s  未读 %d  %s  %s\n",
			c.ID, c.Subject, c.UnreadCount, c.UpdatedAt.Local().Format("01-02 15:04"), c.Preview)
	}
}

func printMessages(r *widget.Reconciler) {
	for _, v := range r.Messages() {
		who := "对方"
		if v.Own {
			who = "我"
		}
		fmt.Printf("[%s] %s: %s %s\n", v.DisplayTime, who, v.Body, v.StatusGlyph)
	}
}

func login(baseURL, email, password string) (string, *widget.Identity, error) {
	client := resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second)

	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(dto.CredentialDTO{Email: &email, Password: &password}).
		Post("/api/user/login")
	if err != nil {
		return "", nil, err
	}

	var env struct {
		Code    int                `json:"code"`
		Message string             `json:"message"`
		Data    dto.LoginResultDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return "", nil, err
	}
	if env.Code != 200 {
		return "", nil, fmt.Errorf("登录被拒绝 [%d] %s", env.Code, env.Message)
	}

	identity := &widget.Identity{}
	if env.Data.User.UserID != nil {
		identity.ID = *env.Data.User.UserID
	}
	if env.Data.User.Email != nil {
		identity.Email = *env.Data.User.Email
	}
	if env.Data.User.Nickname != nil {
		identity.Nickname = *env.Data.User.Nickname
	}
	return env.Data.Token, identity, nil
}
