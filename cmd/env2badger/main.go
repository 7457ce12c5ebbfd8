package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/betbot/polycopy/pkg/secretstore"
	"github.com/joho/godotenv"
)

// defaultKeys 服务端从密钥库读取的默认凭证
var defaultKeys = []string{
	"CLOB_API_KEY", "CLOB_API_SECRET", "CLOB_API_PASSPHRASE",
	"api_key", "api_secret", "api_passphrase",
}

func main() {
	var (
		inPath    = flag.String("in", ".env", "input .env file path")
		dbPath    = flag.String("badger", getenv("SECRETS_DB", "data/secrets.badger"), "badger secrets db path")
		secretKey = flag.String("secret-key", getenv("POLYCOPY_SECRET_KEY", ""), "badger encryption key (32 bytes base64/hex)")
		keys      = flag.String("keys", strings.Join(defaultKeys, ","), "comma separated keys to import; * imports everything")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	if keyBytes == nil {
		fatal(fmt.Errorf("secret key is required: set POLYCOPY_SECRET_KEY or pass -secret-key"))
	}

	kv, err := godotenv.Read(*inPath)
	if err != nil {
		fatal(err)
	}
	kv = selectKeys(kv, *keys)

	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
		ReadOnly:      false,
	})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	names := make([]string, 0, len(kv))
	for k := range kv {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := ss.SetString(secretstore.EnvPrefix+k, kv[k]); err != nil {
			fatal(err)
		}
	}

	fmt.Fprintf(os.Stderr, "已导入 %d 项到 badger：%s（%s）\n", len(names), *dbPath, strings.Join(names, ", "))
}

// selectKeys 按白名单过滤，空值跳过
func selectKeys(kv map[string]string, allow string) map[string]string {
	out := map[string]string{}
	all := strings.TrimSpace(allow) == "*"
	wanted := map[string]bool{}
	for _, k := range strings.Split(allow, ",") {
		if k = strings.TrimSpace(k); k != "" {
			wanted[k] = true
		}
	}
	for k, v := range kv {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if all || wanted[k] {
			out[k] = v
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
