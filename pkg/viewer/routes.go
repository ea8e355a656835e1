package viewer

import (
	"bufio"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/HorseArcher567/applog/pkg/xlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FileInfo /files 返回的单个日志文件信息。
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	Active  bool      `json:"active"`
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/files", s.listFiles)
	s.engine.GET("/files/:name", s.tailFile)
	s.engine.GET("/alerts", s.streamAlerts)
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	if !s.logs.Active() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"active": s.logs.Active(),
		"dir":    s.logs.Dir(),
	})
}

func (s *Server) listFiles(c *gin.Context) {
	paths, err := s.logs.Files()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	active := s.logs.ActiveFile()
	files := make([]FileInfo, 0, len(paths))
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			// 列出之后被清理
			continue
		}
		files = append(files, FileInfo{
			Name:    filepath.Base(p),
			Size:    st.Size(),
			ModTime: st.ModTime(),
			Active:  p == active,
		})
	}
	c.JSON(http.StatusOK, files)
}

func (s *Server) tailFile(c *gin.Context) {
	n := s.config.TailLines
	if q := c.Query("tail"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "tail must be a positive integer"})
			return
		}
		n = min(v, maxTailLines)
	}

	// 只允许访问 Logger 管理的文件
	path, ok := s.lookup(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "log file not found"})
		return
	}

	lines, err := tail(path, n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	c.String(http.StatusOK, b.String())
}

func (s *Server) lookup(name string) (string, bool) {
	paths, err := s.logs.Files()
	if err != nil {
		return "", false
	}
	for _, p := range paths {
		if filepath.Base(p) == name {
			return p, true
		}
	}
	return "", false
}

// streamAlerts 以 Server-Sent Events 推送告警，level 参数可提高最低级别。
// 连接建立后先发送一行注释，表示订阅已生效。
func (s *Server) streamAlerts(c *gin.Context) {
	floor := xlog.LevelWarn
	if q := c.Query("level"); q != "" {
		level, err := xlog.ParseLevel(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		floor = level
	}

	sub := s.logs.Subscribe(s.config.AlertBuffer)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	_, _ = io.WriteString(c.Writer, ": subscribed\n\n")
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case e, ok := <-sub.C():
			if !ok {
				return false
			}
			if xlog.ShouldEmit(e.Level, floor) {
				c.SSEvent("alert", e)
			}
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// tail 返回文件最后 n 行
func tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		ring[count%n] = sc.Text()
		count++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if count <= n {
		return ring[:count], nil
	}
	start := count % n
	return append(ring[start:], ring[:start]...), nil
}
