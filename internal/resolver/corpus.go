// ABOUTME: Built-in fallback corpus for the assistant
// ABOUTME: Pre-authored answers to the console's quick questions plus the generic reply

package resolver

// defaultCorpus is checked in order; the first matching key wins.
var defaultCorpus = []Entry{
	{
		Key:    "如何接入邮箱账号",
		Answer: `要接入邮箱账号，请按以下步骤操作：

1. **进入系统设置**
   点击左侧菜单的"系统设置"进入配置页面。

2. **配置QQ邮箱**
   - 邮箱地址：填写您的QQ邮箱完整地址（如：xxx@qq.com）
   - 授权码：填写QQ邮箱的授权码（非登录密码）

3. **获取授权码**
   - 登录QQ邮箱网页版
   - 进入"设置" → "账户"
   - 找到"POP3/IMAP/SMTP/Exchange/CardDAV/CalDAV服务"
   - 开启"IMAP/SMTP服务"
   - 按提示获取16位授权码

4. **测试连接**
   配置完成后点击"测试连接"验证配置是否正确。`,
	},
	{
		Key:    "如何配置邮件处理规则",
		Answer: `邮件处理规则配置说明：

1. **自动处理模式**
   在"系统设置"中开启"自动处理"开关，系统会自动处理收到的邮件。

2. **邮件分类**
   系统会自动将邮件分为以下类别：
   - 产品咨询：关于产品功能、价格等的咨询
   - 客户投诉：客户的投诉和不满
   - 客户反馈：客户的建议和意见
   - 无关邮件：广告、垃圾邮件等

3. **知识库配置**
   在"知识库"页面上传相关文档，AI会基于这些知识生成更精准的回复。

4. **监控间隔**
   在"系统设置"中可以配置邮件检查间隔（默认15分钟）。`,
	},
	{
		Key:    "处理失败怎么排查",
		Answer: `邮件处理失败排查指南：

1. **检查API配置**
   - 确认硅基流动API密钥是否正确
   - 在"系统设置"中点击"测试AI连接"验证

2. **检查邮箱连接**
   - 确认邮箱地址和授权码正确
   - 点击"测试邮箱连接"验证

3. **查看错误日志**
   - 检查浏览器控制台是否有错误信息
   - 查看后端终端输出的错误日志

4. **常见问题**
   - API额度不足：检查硅基流动账户余额
   - 网络问题：确认能正常访问API服务
   - 邮件过大：部分邮件内容过长可能导致处理超时

5. **重试处理**
   在"邮件管理"页面找到失败的邮件，点击"重新处理"。`,
	},
	{
		Key:    "知识库如何使用",
		Answer: `知识库使用指南：

1. **上传文档**
   - 进入"知识库"页面
   - 点击"上传文档"按钮
   - 支持 TXT、MD、PDF 等格式

2. **文档管理**
   - 查看已上传的文档列表
   - 可以预览、下载或删除文档

3. **重建索引**
   - 上传新文档后点击"重建索引"
   - 系统会自动将文档内容向量化

4. **RAG测试**
   - 在知识库页面可以测试问答效果
   - 输入问题查看AI基于知识库的回答

5. **最佳实践**
   - 上传产品手册、FAQ等文档
   - 保持文档内容清晰、结构化
   - 定期更新知识库内容`,
	},
}

// genericTemplate is used when no corpus key matches. %s is the user text.
const genericTemplate = `感谢您的提问！

关于"%s"，我可以为您提供以下帮助：

1. **系统使用**：您可以通过左侧菜单访问各个功能模块
2. **邮件处理**：在"邮件管理"页面可以手动或自动处理邮件
3. **配置设置**：在"系统设置"中可以配置邮箱和AI模型
4. **知识库**：上传相关文档让AI回复更精准

如果您有更具体的问题，请详细描述，我会尽力帮助您！

💡 提示：您也可以点击快捷问题按钮快速获取常见问题的答案。`
