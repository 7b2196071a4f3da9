package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Brent-Mendoza/blog-site/config"
	"github.com/Brent-Mendoza/blog-site/gateway"
	"github.com/Brent-Mendoza/blog-site/models"
	"github.com/Brent-Mendoza/blog-site/store"
	"github.com/Brent-Mendoza/blog-site/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := utils.InitLogger(cfg.Log); err != nil {
		panic(err)
	}

	ctx := context.Background()

	db, err := config.InitDatabase(&models.Profile{}, &models.Blog{}, &models.Comment{})
	if err != nil {
		utils.Sugar.Fatalf("database: %v", err)
	}

	blobs, err := gateway.NewBlobStore(ctx, cfg.S3)
	if err != nil {
		utils.Sugar.Fatalf("object store: %v", err)
	}

	gw := gateway.Gateway{
		Auth:     gateway.NewAuthClient(cfg.Auth, utils.Sugar),
		Blogs:    gateway.NewBlogRows(db),
		Comments: gateway.NewCommentRows(db),
		Profiles: gateway.NewProfileRows(db),
		Storage:  blobs,
	}

	app := store.New(gw, utils.Sugar)
	app.Auth.CheckSession(ctx)
	if u := app.Auth.State().User; u != nil {
		fmt.Printf("signed in as %s\n", u.Email)
	}

	runShell(ctx, app)
}

// runShell is the stand-in for the view layer: it renders slice snapshots
// and dispatches slice operations from terminal commands.
func runShell(ctx context.Context, app *store.Store) {
	page := 0
	fmt.Println(`type "help" for commands`)

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			return
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		rest := strings.TrimSpace(strings.TrimPrefix(sc.Text(), cmd))

		switch cmd {
		case "help":
			printHelp()
		case "quit", "exit":
			return

		case "register":
			if len(args) != 3 {
				fmt.Println("usage: register <email> <password> <username>")
				continue
			}
			if err := app.Auth.SignUp(ctx, args[0], args[1], args[2]); err == nil {
				fmt.Println("registered and signed in")
			}
			printAuthErr(app)
		case "login":
			if len(args) != 2 {
				fmt.Println("usage: login <email> <password>")
				continue
			}
			if err := app.Auth.SignIn(ctx, args[0], args[1]); err == nil {
				fmt.Println("signed in")
			}
			printAuthErr(app)
		case "logout":
			if err := app.Auth.SignOut(ctx); err == nil {
				fmt.Println("signed out")
			}
			printAuthErr(app)
		case "whoami":
			if u := app.Auth.State().User; u != nil {
				fmt.Printf("%s (%s)\n", u.Email, u.ID)
			} else {
				fmt.Println("anonymous")
			}

		case "list":
			if len(args) == 1 {
				if p, err := strconv.Atoi(args[0]); err == nil {
					page = p
				}
			}
			if app.Blogs.FetchBlogs(ctx, page) == nil {
				printBlogs(app.Blogs.State().Blogs, page)
			} else {
				fmt.Println("error:", app.Blogs.State().Err)
			}

		case "create":
			title, content, image, _ := parsePipes(rest)
			if title == "" {
				fmt.Println("usage: create <title> | <content> [| image path]")
				continue
			}
			if blog, err := app.Blogs.CreateBlog(ctx, title, content, loadImage(image)); err == nil {
				fmt.Printf("blog %d created successfully\n", blog.ID)
			} else {
				fmt.Println("error:", err)
			}

		case "edit":
			id, body := splitID(rest)
			if id == 0 {
				fmt.Println("usage: edit <id> <title> | <content> [| image path or -]")
				continue
			}
			title, content, image, _ := parsePipes(body)
			removed := image == "-"
			if removed {
				image = ""
			}
			if _, err := app.Blogs.UpdateBlog(ctx, id, title, content, loadImage(image), removed); err == nil {
				fmt.Println("blog updated successfully")
			} else {
				fmt.Println("error:", err)
			}

		case "delete":
			id, _ := splitID(rest)
			if id == 0 {
				fmt.Println("usage: delete <id>")
				continue
			}
			if err := app.Blogs.DeleteBlog(ctx, id); err == nil {
				fmt.Println("blog deleted successfully")
				// Back to the first page and re-fetch on top of the
				// optimistic local filter.
				page = 0
				_ = app.Blogs.FetchBlogs(ctx, page)
				printBlogs(app.Blogs.State().Blogs, page)
			} else {
				fmt.Println("error:", err)
			}

		case "view":
			id, _ := splitID(rest)
			if id == 0 {
				fmt.Println("usage: view <id>")
				continue
			}
			printBlogDetail(app, id)
			if app.Comments.FetchComments(ctx, id) == nil {
				printComments(app.Comments.State().Comments)
			} else {
				fmt.Println("error:", app.Comments.State().Err)
			}

		case "comment":
			id, body := splitID(rest)
			if id == 0 {
				fmt.Println("usage: comment <blog id> <body> [| image path or -]")
				continue
			}
			text, image, _, _ := parsePipes(body)
			cleared := image == "-"
			if cleared {
				image = ""
			}
			wasEditing := app.Comments.State().Editing()
			if c, err := app.Comments.SubmitComment(ctx, id, text, loadImage(image), cleared); err == nil {
				if wasEditing {
					fmt.Println("comment updated successfully")
				} else {
					fmt.Printf("comment %d saved successfully\n", c.ID)
				}
				_ = app.Comments.FetchComments(ctx, id)
				printComments(app.Comments.State().Comments)
			} else {
				fmt.Println("error:", err)
			}

		case "edit-comment":
			id, _ := splitID(rest)
			for _, c := range app.Comments.State().Comments {
				if c.ID == id {
					app.Comments.BeginEdit(c)
					fmt.Printf("editing comment %d: %s\n", c.ID, c.Body)
					break
				}
			}
		case "cancel-edit":
			app.Comments.CancelEdit()
			fmt.Println("edit cancelled")

		case "delete-comment":
			blogID, tail := splitID(rest)
			id, _ := splitID(tail)
			if blogID == 0 || id == 0 {
				fmt.Println("usage: delete-comment <blog id> <comment id>")
				continue
			}
			if err := app.Comments.DeleteComment(ctx, id); err == nil {
				fmt.Println("comment deleted successfully")
				_ = app.Comments.FetchComments(ctx, blogID)
				printComments(app.Comments.State().Comments)
			} else {
				fmt.Println("error:", err)
			}

		default:
			fmt.Println("unknown command; type \"help\"")
		}
	}
}

func printHelp() {
	fmt.Print(`commands:
  register <email> <password> <username>
  login <email> <password> / logout / whoami
  list [page]
  create <title> | <content> [| image path]
  edit <id> <title> | <content> [| image path or - to remove]
  delete <id>
  view <id>
  comment <blog id> <body> [| image path]
  edit-comment <id> / cancel-edit
  delete-comment <blog id> <comment id>
  quit
`)
}

func printAuthErr(app *store.Store) {
	if msg := app.Auth.State().Err; msg != "" {
		fmt.Println("error:", msg)
	}
}

func printBlogs(blogs []models.Blog, page int) {
	if len(blogs) == 0 {
		fmt.Println("no blogs on this page")
		return
	}
	fmt.Printf("page %d:\n", page)
	for _, b := range blogs {
		marker := ""
		if b.Edited() {
			marker = " (edited)"
		}
		fmt.Printf("  [%d] %s — by %s%s\n", b.ID, b.Title, b.DisplayAuthor(), marker)
	}
}

func printBlogDetail(app *store.Store, id int64) {
	for _, b := range app.Blogs.State().Blogs {
		if b.ID == id {
			fmt.Printf("%s\nposted %s by %s\n\n%s\n", b.Title, b.CreatedAt.Format("2006-01-02 15:04"), b.DisplayAuthor(), b.Content)
			if b.ImageURL != nil {
				fmt.Println("image:", *b.ImageURL)
			}
			return
		}
	}
}

func printComments(comments []models.Comment) {
	fmt.Printf("comments (%d):\n", len(comments))
	for _, c := range comments {
		marker := ""
		if c.Edited() {
			marker = " (edited)"
		}
		fmt.Printf("  [%d] %s: %s%s\n", c.ID, c.DisplayAuthor(), c.Body, marker)
		if c.ImageURL != nil {
			fmt.Println("       image:", *c.ImageURL)
		}
	}
}

// parsePipes splits "a | b | c" into up to three trimmed parts.
func parsePipes(s string) (string, string, string, int) {
	parts := strings.SplitN(s, "|", 3)
	out := [3]string{}
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out[0], out[1], out[2], len(parts)
}

// splitID peels a leading integer id off a command tail.
func splitID(s string) (int64, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexByte(s, ' ')
	head, tail := s, ""
	if idx >= 0 {
		head, tail = s[:idx], strings.TrimSpace(s[idx+1:])
	}
	id, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, s
	}
	return id, tail
}

// loadImage reads an image file selected on the command line. Returns nil
// when no path was given or the file cannot be read.
func loadImage(path string) *store.ImageFile {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("image read failed:", err)
		return nil
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	return &store.ImageFile{Name: filepath.Base(path), ContentType: ct, Data: data}
}
