package bitbucket

import (
	"fmt"

	"github.com/miracodeai/mira/internal/diffreview/provider"
)

func init() {
	provider.Register(bitbucketProviderName, func(cfg provider.Config) (provider.Provider, error) {
		caller, ok := cfg["caller"].(ToolCaller)
		if !ok {
			return nil, fmt.Errorf("bitbucket: provider config missing \"caller\" (ToolCaller)")
		}
		botLogin, _ := cfg["bot_login"].(string)
		maxConcurrentPost, _ := cfg["max_concurrent_post"].(int)
		return New(caller, botLogin, maxConcurrentPost), nil
	})
}

const bitbucketProviderName = "bitbucket"
